package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lus-lang/lus/internal/bundle"
)

// buildStandalone implements `--standalone file --include path[:alias]…`:
// package the named entrypoint script and every --include module onto
// the end of this interpreter's own executable image. Module "bytecode"
// here is the script's raw source bytes — the compiler that would
// produce real bytecode is an external collaborator out of scope for
// this runtime core, so the bundle format is exercised with the
// nearest in-scope stand-in.
func buildStandalone(flags *cliFlags, args []string) error {
	if len(args) == 0 {
		return &usageError{msg: "lus: --standalone requires an entrypoint script"}
	}
	entrypointPath := args[0]

	selfImage, err := readSelfImage()
	if err != nil {
		return fmt.Errorf("lus: reading own executable: %w", err)
	}

	modules, err := resolveModules(entrypointPath, flags.includes)
	if err != nil {
		return err
	}

	entrypointName := moduleName(entrypointPath, "")
	if err := bundle.Build(flags.standalone, selfImage, entrypointName, args[1:], modules); err != nil {
		return fmt.Errorf("lus: building standalone bundle: %w", err)
	}
	fmt.Printf("lus: wrote standalone bundle %s (entrypoint %s, %d module(s))\n",
		flags.standalone, entrypointName, len(modules))
	return nil
}

func readSelfImage() ([]byte, error) {
	path, err := bundle.ExecutablePath()
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// resolveModules loads the entrypoint and every --include path[:alias]
// module, deriving a module name from the path's base name (without
// extension) unless an explicit :alias is given.
func resolveModules(entrypointPath string, includes []string) ([]bundle.Module, error) {
	modules := []bundle.Module{}

	entrySrc, err := os.ReadFile(entrypointPath)
	if err != nil {
		return nil, fmt.Errorf("lus: reading %s: %w", entrypointPath, err)
	}
	modules = append(modules, bundle.Module{Name: moduleName(entrypointPath, ""), Code: entrySrc})

	for _, inc := range includes {
		path, alias := splitIncludeSpec(inc)
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("lus: reading include %s: %w", path, err)
		}
		modules = append(modules, bundle.Module{Name: moduleName(path, alias), Code: src})
	}
	return modules, nil
}

func splitIncludeSpec(spec string) (path, alias string) {
	if i := strings.LastIndexByte(spec, ':'); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

func moduleName(path, alias string) string {
	if alias != "" {
		return alias
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
