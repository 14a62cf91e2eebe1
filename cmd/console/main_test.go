package main

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"blackbox/pkg/emulator"
	"blackbox/pkg/scheduler"
	"blackbox/pkg/vfs"
)

const busyProgram = `#include "blackbox.h"
BlackBox *blackbox;
void on_up() { blackbox->matrix.pixel(1).toggle(); }
void on_down() {} void on_left() {} void on_right() {} void on_select() {}
void on_timeout_1() {} void on_timeout_2() {}
void main() {
	blackbox->matrix.pixel(0).turn_on();
	while (1) {
	}
}
`

func newTestConsole(t *testing.T) (*console, *bytes.Buffer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := scheduler.NewLoop()
	go loop.Run(ctx)

	book := vfs.NewSketchbook()
	if err := book.Write("busy.c", busyProgram); err != nil {
		t.Fatal(err)
	}
	out := new(bytes.Buffer)
	c := newConsole(out, loop, book, []emulator.Option{emulator.WithIterationDelay(5 * time.Millisecond)})
	t.Cleanup(func() {
		c.exec("quit")
		cancel()
	})
	return c, out
}

func mustExec(t *testing.T, c *console, line string) {
	t.Helper()
	if _, err := c.exec(line); err != nil {
		t.Fatalf("exec(%q) error = %v", line, err)
	}
}

func firstRow(t *testing.T, c *console, out *bytes.Buffer) string {
	t.Helper()
	out.Reset()
	mustExec(t, c, "show")
	row, _, _ := strings.Cut(out.String(), "\n")
	return row
}

func TestConsoleRunAndButtons(t *testing.T) {
	c, out := newTestConsole(t)

	mustExec(t, c, "run busy")
	if got := firstRow(t, c, out); got != "#......." {
		t.Errorf("after run, first row = %q", got)
	}

	mustExec(t, c, "u")
	if got := firstRow(t, c, out); got != "##......" {
		t.Errorf("after u, first row = %q", got)
	}

	// Each shortcut is a single transition, so on_up runs once per u.
	mustExec(t, c, "u")
	if got := firstRow(t, c, out); got != "#......." {
		t.Errorf("after second u, first row = %q", got)
	}

	// release is a transition of its own.
	mustExec(t, c, "release up")
	if got := firstRow(t, c, out); got != "##......" {
		t.Errorf("after release up, first row = %q", got)
	}

	mustExec(t, c, "stop")
	out.Reset()
	mustExec(t, c, "show")
	if !strings.Contains(out.String(), "stopped") {
		t.Errorf("show after stop = %q", out.String())
	}
	if _, err := c.exec("u"); err != nil {
		t.Errorf("button after stop should be dropped silently, got %v", err)
	}
}

func TestConsoleSketchbook(t *testing.T) {
	c, out := newTestConsole(t)

	if _, err := c.exec("save copy"); err == nil {
		t.Error("save with nothing loaded should fail")
	}
	mustExec(t, c, "load busy")
	mustExec(t, c, "save copy")
	if got, want := c.book.Sketches(), []string{"busy", "copy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sketches() = %v, want %v", got, want)
	}

	out.Reset()
	mustExec(t, c, "ls")
	if !strings.Contains(out.String(), "copy.c") || !strings.Contains(out.String(), "bytes free") {
		t.Errorf("ls output = %q", out.String())
	}

	if _, err := c.exec("load missing"); err == nil {
		t.Error("loading a missing sketch should fail")
	}
}

func TestConsoleSnapshot(t *testing.T) {
	c, out := newTestConsole(t)
	path := filepath.Join(t.TempDir(), "busy.zip")

	mustExec(t, c, "run busy")
	mustExec(t, c, "u")
	mustExec(t, c, "snap "+path)
	mustExec(t, c, "run busy")
	if got := firstRow(t, c, out); got != "#......." {
		t.Fatalf("fresh run first row = %q", got)
	}

	mustExec(t, c, "restore "+path)
	if got := firstRow(t, c, out); got != "##......" {
		t.Errorf("restored first row = %q", got)
	}
}

func TestConsoleErrors(t *testing.T) {
	c, _ := newTestConsole(t)
	for _, line := range []string{"bogus", "u", "press", "press sideways", "run", "snap x.zip"} {
		if _, err := c.exec(line); err == nil {
			t.Errorf("exec(%q) should fail", line)
		}
	}
	more, err := c.exec("")
	if !more || err != nil {
		t.Errorf("empty line = %v, %v", more, err)
	}
	if more, _ := c.exec("quit"); more {
		t.Error("quit should end the session")
	}
}

func TestComplete(t *testing.T) {
	if got := complete("re"); !reflect.DeepEqual(got, []string{"release", "restore"}) {
		t.Errorf("complete(re) = %v", got)
	}
	if got := complete("zz"); got != nil {
		t.Errorf("complete(zz) = %v", got)
	}
}
