package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseWithLocalInclude(t *testing.T) {
	tmpDir := t.TempDir()
	header := "typedef unsigned char byte;\n#define ROWS 8\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "shapes.h"), []byte(header), 0644); err != nil {
		t.Fatalf("Failed to write shapes.h: %v", err)
	}

	src := `#include "shapes.h"
#include "shapes.h"
byte rows[ROWS];
`
	prog, err := ParseWith(src, DirLoader(tmpDir))
	if err != nil {
		t.Fatalf("ParseWith() error = %v", err)
	}
	// include, typedef, define, include (already seen), global
	if len(prog.Decls) != 5 {
		t.Fatalf("expected 5 declarations, got %d: %s", len(prog.Decls), prog)
	}
	if _, ok := prog.Decls[1].(*TypeDef); !ok {
		t.Errorf("expected header typedef spliced after the include, got %T", prog.Decls[1])
	}
	if v, ok := prog.Define("ROWS"); !ok || v != 8 {
		t.Errorf("expected ROWS = 8 from header, got %d (%v)", v, ok)
	}
}

func TestParseWithIncludeCycle(t *testing.T) {
	files := map[string]string{
		"a.h": `#include "b.h"`,
		"b.h": `#include "a.h"`,
	}
	load := func(path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", os.ErrNotExist
		}
		return src, nil
	}
	_, err := ParseWith(`#include "a.h"`, load)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError for include cycle, got %v", err)
	}
	if perr.File != "b.h" {
		t.Errorf("expected the cycle to be reported in b.h, got %q", perr.File)
	}
}

func TestParseLocalIncludeWithoutLoader(t *testing.T) {
	_, err := Parse(`#include "mine.h"`)
	if err == nil {
		t.Fatal("expected an error without a loader")
	}
}

func TestDirLoaderStaysInBaseDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "ok.h"), []byte("int x;"), 0644); err != nil {
		t.Fatal(err)
	}
	load := DirLoader(filepath.Join(tmpDir, "sub"))
	if _, err := load("../ok.h"); err == nil {
		t.Errorf("expected ../ok.h to be resolved inside the base directory")
	}
}
