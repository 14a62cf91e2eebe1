package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader returns the source of a local header named in #include "path".
type Loader func(path string) (string, error)

// ErrNoLoader is returned when a program includes a local header but the
// parser was not given a Loader.
var ErrNoLoader = errors.New("local includes are not available")

// DirLoader resolves headers relative to baseDir. Paths may not escape it.
func DirLoader(baseDir string) Loader {
	return func(path string) (string, error) {
		full := filepath.Join(baseDir, filepath.Clean("/"+path))
		data, err := os.ReadFile(full)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// builtinHeader reports whether path is provided by the runtime rather than
// loaded from disk.
func builtinHeader(path string) bool {
	switch path {
	case DeviceHeader, "stdint.h", "stdbool.h", "stddef.h", "stdarg.h":
		return true
	}
	return false
}

// ParseWith parses src and splices the declarations of every local header
// it includes, each parsed with the same type table. Headers already
// included are skipped; an include cycle is an error.
func ParseWith(src string, load Loader) (*Program, error) {
	p := NewParser(src)
	p.load = load
	p.including = map[string]bool{}
	p.included = map[string]bool{}
	return p.ParseProgram()
}

// includeLocal parses a local header and returns its declarations.
func (p *Parser) includeLocal(path string, line int) ([]Decl, error) {
	if p.load == nil {
		return nil, &ParseError{Expected: fmt.Sprintf("header %q (%v)", path, ErrNoLoader), Line: line, File: p.file}
	}
	if p.including[path] {
		return nil, &ParseError{Expected: fmt.Sprintf("no include cycle through %q", path), Line: line, File: p.file}
	}
	if p.included[path] {
		return nil, nil
	}
	src, err := p.load(path)
	if err != nil {
		return nil, &ParseError{Expected: fmt.Sprintf("readable header %q", path), Line: line, File: p.file}
	}

	sub := &Parser{
		s:           newScanner(src),
		types:       p.types,
		sourceLines: strings.Split(src, "\n"),
		load:        p.load,
		including:   p.including,
		included:    p.included,
		file:        path,
	}
	p.including[path] = true
	defer delete(p.including, path)

	prog, err := sub.ParseProgram()
	if err != nil {
		return nil, err
	}
	p.included[path] = true
	return prog.Decls, nil
}
