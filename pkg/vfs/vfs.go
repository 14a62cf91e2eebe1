// Package vfs is the sketchbook: program sources and local headers kept in
// memory, with dirty tracking so only changed files are written back to the
// host directory.
package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"blackbox/pkg/compiler"
)

// MaxBookBytes is the total size of all files in one sketchbook.
const MaxBookBytes = 1 << 20

// validFilename accepts program sources and headers, e.g. snake.c or font.h.
var validFilename = regexp.MustCompile(`^[a-zA-Z0-9_]{1,32}\.[ch]$`)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("sketchbook quota exceeded")
)

type Entry struct {
	Source   string
	Created  time.Time
	Modified time.Time
}

// Sketchbook holds named sources in memory. It is safe for concurrent use.
type Sketchbook struct {
	mu    sync.RWMutex
	files map[string]*Entry
	dirty map[string]bool
	used  int
}

func NewSketchbook() *Sketchbook {
	return &Sketchbook{
		files: make(map[string]*Entry),
		dirty: make(map[string]bool),
	}
}

// SketchName returns the file name of a program: "snake" becomes
// "snake.c". Names that already carry an extension are returned as is.
func SketchName(name string) string {
	if strings.HasSuffix(name, ".c") || strings.HasSuffix(name, ".h") {
		return name
	}
	return name + ".c"
}

// Write stores src under filename, replacing any previous content.
func (b *Sketchbook) Write(filename, src string) error {
	if !validFilename.MatchString(filename) {
		return ErrInvalidFilename
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	oldSize := 0
	entry, ok := b.files[filename]
	if ok {
		oldSize = len(entry.Source)
	}
	if b.used-oldSize+len(src) > MaxBookBytes {
		return ErrQuotaExceeded
	}
	if entry == nil {
		entry = &Entry{Created: time.Now()}
		b.files[filename] = entry
	}
	entry.Source = src
	entry.Modified = time.Now()

	b.dirty[filename] = true
	b.used += len(src) - oldSize
	return nil
}

func (b *Sketchbook) Read(filename string) (string, error) {
	if !validFilename.MatchString(filename) {
		return "", ErrInvalidFilename
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.files[filename]
	if !ok {
		return "", ErrFileNotFound
	}
	return entry.Source, nil
}

// Delete removes filename; the next PersistTo removes it from disk too.
func (b *Sketchbook) Delete(filename string) error {
	if !validFilename.MatchString(filename) {
		return ErrInvalidFilename
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.files[filename]
	if !ok {
		return ErrFileNotFound
	}
	b.used -= len(entry.Source)
	delete(b.files, filename)
	b.dirty[filename] = true
	return nil
}

// Meta returns the creation and modification time of filename.
func (b *Sketchbook) Meta(filename string) (created, modified time.Time, err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.files[filename]
	if !ok {
		return time.Time{}, time.Time{}, ErrFileNotFound
	}
	return entry.Created, entry.Modified, nil
}

func (b *Sketchbook) FreeSpace() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return MaxBookBytes - b.used
}

// List returns every file name, sorted.
func (b *Sketchbook) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.files))
	for name := range b.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sketches returns the names of the programs without their extension.
func (b *Sketchbook) Sketches() []string {
	var out []string
	for _, name := range b.List() {
		if base, ok := strings.CutSuffix(name, ".c"); ok {
			out = append(out, base)
		}
	}
	return out
}

// Dirty reports whether any change has not been persisted.
func (b *Sketchbook) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.dirty) > 0
}

// Loader resolves #include "name.h" against the headers in the book.
func (b *Sketchbook) Loader() compiler.Loader {
	return func(path string) (string, error) {
		src, err := b.Read(filepath.Base(path))
		if err != nil {
			return "", &os.PathError{Op: "include", Path: path, Err: err}
		}
		return src, nil
	}
}

// LoadFrom fills the book from the files in dir. Names the book would not
// accept are skipped. A missing directory is not an error.
func (b *Sketchbook) LoadFrom(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !validFilename.MatchString(name) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		entry := &Entry{Source: string(raw), Created: time.Now(), Modified: time.Now()}
		if info, err := de.Info(); err == nil {
			entry.Created = info.ModTime()
			entry.Modified = info.ModTime()
		}
		b.put(name, entry)
	}
	return nil
}

// PersistTo writes every changed file to dir and removes deleted ones. The
// directory is created if needed. Files that fail to write stay dirty; the
// first error is returned.
func (b *Sketchbook) PersistTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	writes, deletes := b.drain()
	var firstErr error
	for _, name := range deletes {
		err := os.Remove(filepath.Join(dir, name))
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	for name, entry := range writes {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(entry.Source), 0644); err != nil {
			b.markDirty(name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_ = os.Chtimes(path, time.Now(), entry.Modified)
	}
	return firstErr
}

// drain takes the pending changes: copies of the entries to write and the
// names to delete. The dirty set is left empty.
func (b *Sketchbook) drain() (map[string]Entry, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writes := make(map[string]Entry)
	var deletes []string
	for name := range b.dirty {
		if entry, ok := b.files[name]; ok {
			writes[name] = *entry
		} else {
			deletes = append(deletes, name)
		}
		delete(b.dirty, name)
	}
	return writes, deletes
}

func (b *Sketchbook) markDirty(name string) {
	b.mu.Lock()
	b.dirty[name] = true
	b.mu.Unlock()
}

// put installs entry without marking it dirty. Used when loading.
func (b *Sketchbook) put(name string, entry *Entry) {
	if old, ok := b.files[name]; ok {
		b.used -= len(old.Source)
	}
	b.files[name] = entry
	b.used += len(entry.Source)
}
