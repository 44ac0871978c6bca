package bundle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildThenLoadRoundTrip(t *testing.T) {
	selfImage := []byte("fake-interpreter-binary-bytes")
	modules := []Module{
		{Name: "main", Code: []byte("bytecode for main")},
		{Name: "util", Code: []byte("bytecode for util, a bit longer")},
	}

	dir := t.TempDir()
	outPath := filepath.Join(dir, "bundled")

	if err := Build(outPath, selfImage, "main", []string{"-v"}, modules); err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	b, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Index.Entrypoint != "main" {
		t.Fatalf("expected entrypoint main, got %q", b.Index.Entrypoint)
	}
	if len(b.Index.Args) != 1 || b.Index.Args[0] != "-v" {
		t.Fatalf("unexpected preserved args: %v", b.Index.Args)
	}
	for _, m := range modules {
		got, ok := b.FileBytes(m.Name)
		if !ok {
			t.Fatalf("missing module %q in loaded bundle", m.Name)
		}
		if !bytes.Equal(got, m.Code) {
			t.Fatalf("module %q bytes mismatch: got %q want %q", m.Name, got, m.Code)
		}
	}
}

func TestLoadRejectsMissingMagic(t *testing.T) {
	_, err := Load([]byte("not a bundle at all"))
	if err != ErrNoBundle {
		t.Fatalf("expected ErrNoBundle, got %v", err)
	}
}

func TestLoadRejectsShortInput(t *testing.T) {
	_, err := Load([]byte("hi"))
	if err != ErrNoBundle {
		t.Fatalf("expected ErrNoBundle for too-short input, got %v", err)
	}
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	selfImage := []byte("fake-binary")

	// Build a bundle then corrupt the version byte inside the index.
	dir := t.TempDir()
	outPath := filepath.Join(dir, "bundled")
	if err := Build(outPath, selfImage, "main", nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	indexSize := int(data[len(data)-8]) | int(data[len(data)-7])<<8 | int(data[len(data)-6])<<16 | int(data[len(data)-5])<<24
	indexStart := len(data) - FooterSize - indexSize
	data[indexStart] = 99 // corrupt version byte

	_, err = Load(data)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}
