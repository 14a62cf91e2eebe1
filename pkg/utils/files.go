// Package utils holds small helpers shared by the commands.
package utils

import (
	"os"
	"path/filepath"
)

// SourceFile is a program read from the host file system.
type SourceFile struct {
	Text string
	// Path is absolute.
	Path string
	// Dir is where local includes are looked up.
	Dir string
}

// ReadSource reads the program at relPath. The path is resolved against the
// working directory first, so ../ segments are cleaned before Dir is taken.
func ReadSource(relPath string) (*SourceFile, error) {
	fullPath, err := filepath.Abs(relPath)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	return &SourceFile{Text: string(raw), Path: fullPath, Dir: filepath.Dir(fullPath)}, nil
}
