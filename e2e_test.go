package main

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
	"blackbox/pkg/emulator"
	"blackbox/pkg/interp"
	"blackbox/pkg/peripherals"
	"blackbox/pkg/vfs"
)

func compileSketch(t *testing.T, name string) *emulator.Program {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("sketches", name))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	prog, err := emulator.CompileWith(string(src), compiler.DirLoader("sketches"))
	if err != nil {
		t.Fatalf("Compile %s: %v", name, err)
	}
	return prog
}

func batch(d time.Duration, presses ...press) batchConfig {
	return batchConfig{duration: d, presses: presses, seed: 1, budget: interp.DefaultStepBudget}
}

func TestBlinkSketch(t *testing.T) {
	emu, rec, err := runBatch(compileSketch(t, "blink.c"), batch(1200*time.Millisecond), io.Discard)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := [][]int{{0}, {}, {0}}
	if got := rec.Frames(); !reflect.DeepEqual(got, want) {
		t.Errorf("frames = %v, want %v", got, want)
	}
	if emu.State().String() != "stopped" {
		t.Errorf("state = %s after the batch", emu.State())
	}
}

func TestDotSketch(t *testing.T) {
	presses := []press{
		{at: 100 * time.Millisecond, button: devices.Right},
		{at: 200 * time.Millisecond, button: devices.Up},
		{at: 300 * time.Millisecond, button: devices.Select},
		{at: 500 * time.Millisecond, button: devices.Left},
		{at: 600 * time.Millisecond, button: devices.Left},
	}
	emu, rec, err := runBatch(compileSketch(t, "dot.c"), batch(time.Second, presses...), io.Discard)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// (3,3) right to (4,3), up to (4,2), left twice to (2,2).
	if got, want := rec.Last(), []int{18}; !reflect.DeepEqual(got, want) {
		t.Errorf("last frame = %v, want %v", got, want)
	}
	if v, ok := emu.Env().Global("x"); !ok || interp.Format(v.Value) != "2" {
		t.Errorf("x = %v, want 2", v)
	}

	var tones []string
	for _, e := range rec.Events() {
		if e.Kind != peripherals.EventDraw {
			tones = append(tones, strings.TrimSpace(e.String()))
		}
	}
	want := []string{"300ms tone 440", "400ms no_tone"}
	if !reflect.DeepEqual(tones, want) {
		t.Errorf("piezo events = %q, want %q", tones, want)
	}
}

func TestCounterSketch(t *testing.T) {
	emu, rec, err := runBatch(compileSketch(t, "counter.c"), batch(1020*time.Millisecond), io.Discard)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	rows := emu.Device().Matrix.Rows()
	if rows[0] != 10 || rows[7] != 1 {
		t.Errorf("rows = %08b, want ticks 10 on top and 1 second at the bottom", rows)
	}
	var beeps int
	for _, e := range rec.Events() {
		if e.Kind == peripherals.EventTone && e.Frequency == 880 {
			beeps++
		}
	}
	if beeps != 1 {
		t.Errorf("beeps = %d, want 1", beeps)
	}
}

func TestRuntimeErrorEndsBatch(t *testing.T) {
	prog, err := emulator.Compile(`#include "blackbox.h"
BlackBox *blackbox;
int zero = 0;
void on_up() {} void on_down() {} void on_left() {} void on_right() {} void on_select() {}
void on_timeout_1() {} void on_timeout_2() {}
void main() {
	sleep(50);
	while (1) {
		blackbox->matrix.pixel(1 / zero).turn_on();
	}
}
`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, _, err = runBatch(prog, batch(time.Second), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("err = %v, want a division by zero", err)
	}
}

func TestParsePresses(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		want    []press
		wantErr bool
	}{
		{name: "empty", script: ""},
		{
			name:   "sorted by time",
			script: "select@2s, up@100ms",
			want: []press{
				{at: 100 * time.Millisecond, button: devices.Up},
				{at: 2 * time.Second, button: devices.Select},
			},
		},
		{name: "missing time", script: "up", wantErr: true},
		{name: "bad button", script: "jump@1s", wantErr: true},
		{name: "bad duration", script: "up@soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePresses(tt.script)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePresses(%q) error = %v, wantErr %v", tt.script, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePresses(%q) = %v, want %v", tt.script, got, tt.want)
			}
		})
	}
}

func TestReadSourceFromSketchbook(t *testing.T) {
	dir := t.TempDir()
	book := vfs.NewSketchbook()
	for _, name := range []string{"dot.c", "wrap.h"} {
		raw, err := os.ReadFile(filepath.Join("sketches", name))
		if err != nil {
			t.Fatal(err)
		}
		if err := book.Write(name, string(raw)); err != nil {
			t.Fatal(err)
		}
	}
	if err := book.PersistTo(dir); err != nil {
		t.Fatal(err)
	}

	src, load, err := readSource("", "dot", dir)
	if err != nil {
		t.Fatalf("readSource: %v", err)
	}
	if _, err := emulator.CompileWith(src, load); err != nil {
		t.Errorf("sketchbook program does not compile: %v", err)
	}
	if _, _, err := readSource("", "missing", dir); err == nil {
		t.Error("missing sketch should fail")
	}
}
