package emulator

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
	"blackbox/pkg/interp"
	"blackbox/pkg/scheduler"
)

// Archive entry names.
const (
	entryProgram = "program.c"
	entryDevice  = "device.json"
	entryMeta    = "meta.json"
)

// Meta describes the run a snapshot was taken from.
type Meta struct {
	Taken   time.Time         `json:"taken"`
	Millis  int64             `json:"millis"`
	State   string            `json:"state"`
	Error   string            `json:"error,omitempty"`
	Globals map[string]string `json:"globals"`
}

// Snapshot is the decoded content of a snapshot archive.
type Snapshot struct {
	Source string
	Device []byte
	Meta   Meta
}

// Snapshot captures the program source, the device state and a readable
// dump of the globals into a ZIP archive.
func (e *Emulator) Snapshot() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	if err := writeZipEntry(zw, entryProgram, []byte(e.prog.Source)); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, entryDevice, e.dev.SaveState()); err != nil {
		return nil, err
	}

	meta := Meta{
		Taken:   time.Now().UTC(),
		Millis:  e.Millis(),
		State:   e.State().String(),
		Globals: make(map[string]string),
	}
	if err := e.Err(); err != nil {
		meta.Error = err.Error()
	}
	for _, name := range e.env.Globals() {
		if name == e.env.Root {
			continue
		}
		v, _ := e.env.Global(name)
		meta.Globals[name] = interp.Format(v.Value)
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	if err := writeZipEntry(zw, entryMeta, metaJSON); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// SnapshotToFile writes the snapshot archive to path.
func (e *Emulator) SnapshotToFile(path string) error {
	data, err := e.Snapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadSnapshot decodes an archive produced by Snapshot.
func ReadSnapshot(data []byte) (*Snapshot, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	src, err := readZipEntry(fileMap, entryProgram)
	if err != nil {
		return nil, err
	}
	dev, err := readZipEntry(fileMap, entryDevice)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Source: string(src), Device: dev}
	if metaJSON, err := readZipEntry(fileMap, entryMeta); err == nil {
		if err := json.Unmarshal(metaJSON, &snap.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return snap, nil
}

// Restore compiles the snapshot's program and binds it to a device that
// starts from the saved matrix, piezo and button state. Globals are
// initialized afresh; the run still has to be started.
func Restore(data []byte, load compiler.Loader, host scheduler.Host, r devices.Renderer, opts ...Option) (*Emulator, error) {
	snap, err := ReadSnapshot(data)
	if err != nil {
		return nil, err
	}
	prog, err := CompileWith(snap.Source, load)
	if err != nil {
		return nil, err
	}
	e, err := New(prog, host, r, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.dev.LoadState(snap.Device); err != nil {
		return nil, fmt.Errorf("load device state: %w", err)
	}
	return e, nil
}

// RestoreFromFile reads a snapshot archive from path and restores it.
func RestoreFromFile(path string, load compiler.Loader, host scheduler.Host, r devices.Renderer, opts ...Option) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Restore(data, load, host, r, opts...)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
