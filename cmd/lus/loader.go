package main

import (
	"fmt"
	"os"

	"github.com/lus-lang/lus/internal/bundle"
	"github.com/lus-lang/lus/internal/runtimestate"
)

// sourceChunk is the placeholder Chunk a real parser/compiler/VM would
// replace: the lexer, parser, code generator and bytecode VM are external
// collaborators out of scope for this runtime core (only the Loader/Chunk
// seam it consumes from them is specified). It exists so the CLI, pledge
// wiring, scheduler, and bundle loading can be exercised end to end
// without a real interpreter behind them.
type sourceChunk struct {
	name string
	src  []byte
}

// ErrNoVM is returned by sourceChunk.Call: it marks the exact seam where
// a real bytecode VM's dispatch loop would take over.
var ErrNoVM = fmt.Errorf("lus: no script VM wired into this build")

func (c *sourceChunk) Call(_ *runtimestate.State, _ []any) (any, error) {
	if len(c.src) == 0 {
		return nil, fmt.Errorf("%s: empty script", c.name)
	}
	return nil, ErrNoVM
}

// fileLoader implements runtimestate.Loader by reading script bytes from
// disk or from already-resolved source, and handing them to sourceChunk.
type fileLoader struct{}

func (fileLoader) LoadFile(path string) (runtimestate.Chunk, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lus: reading %s: %w", path, err)
	}
	return &sourceChunk{name: path, src: src}, nil
}

func (fileLoader) LoadSource(name string, src []byte) (runtimestate.Chunk, error) {
	return &sourceChunk{name: name, src: src}, nil
}

// bundleLoader resolves LoadFile against a standalone bundle's packaged
// module bytes instead of the filesystem, so a bundled entrypoint's
// `require`/-l module lookups stay inside the bundle.
type bundleLoader struct {
	b *bundle.Bundle
}

func (l bundleLoader) LoadFile(name string) (runtimestate.Chunk, error) {
	src, ok := l.b.FileBytes(name)
	if !ok {
		return nil, fmt.Errorf("lus: module %q not found in bundle", name)
	}
	return &sourceChunk{name: name, src: src}, nil
}

func (l bundleLoader) LoadSource(name string, src []byte) (runtimestate.Chunk, error) {
	return &sourceChunk{name: name, src: src}, nil
}
