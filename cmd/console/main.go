package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
	"blackbox/pkg/emulator"
	"blackbox/pkg/peripherals"
	"blackbox/pkg/scheduler"
	"blackbox/pkg/utils"
	"blackbox/pkg/vfs"
)

const historyFile = ".blackbox_history"

var shortcuts = map[string]devices.Button{
	"u": devices.Up,
	"d": devices.Down,
	"l": devices.Left,
	"r": devices.Right,
	"s": devices.Select,
}

var commands = []string{
	"run", "u", "d", "l", "r", "s", "press", "release", "stop", "show",
	"save", "load", "ls", "snap", "restore", "help", "quit",
}

const help = `run FILE|NAME   compile and start a program from disk or the sketchbook
u d l r s       press a button once
press B         hold button B (up, down, left, right, select)
release B       release button B
stop            stop the current run
show            print the matrix, piezo and run state
save NAME       store the current program in the sketchbook
load NAME       run a program from the sketchbook
ls              list the sketchbook
snap FILE       write a snapshot archive
restore FILE    restore a snapshot and start it
quit            leave`

// console owns one run at a time. Every emulator call is posted to the
// loop goroutine.
type console struct {
	out     io.Writer
	loop    *scheduler.Loop
	book    *vfs.Sketchbook
	display *peripherals.TextDisplay
	opts    []emulator.Option

	emu *emulator.Emulator
	src string
}

func newConsole(out io.Writer, loop *scheduler.Loop, book *vfs.Sketchbook, opts []emulator.Option) *console {
	return &console{
		out:     out,
		loop:    loop,
		book:    book,
		display: peripherals.NewTextDisplay(out),
		opts:    opts,
	}
}

// do runs fn on the loop goroutine and waits for it.
func (c *console) do(fn func() error) error {
	done := make(chan error, 1)
	c.loop.Post(func() { done <- fn() })
	return <-done
}

// exec runs one command line. It reports false when the console should
// exit.
func (c *console) exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true, nil
	}
	cmd, args := fields[0], fields[1:]
	arg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("usage: %s NAME", cmd)
		}
		return args[0], nil
	}

	if b, ok := shortcuts[cmd]; ok {
		return true, c.do(func() error {
			if c.emu == nil {
				return errors.New("nothing is running")
			}
			c.emu.Button(b, true)
			return nil
		})
	}

	switch cmd {
	case "quit", "exit":
		return false, c.do(c.stop)
	case "help":
		fmt.Fprintln(c.out, help)
	case "press", "release":
		name, err := arg()
		if err != nil {
			return true, err
		}
		b, err := devices.ParseButton(name)
		if err != nil {
			return true, err
		}
		return true, c.do(func() error {
			if c.emu == nil {
				return errors.New("nothing is running")
			}
			if !c.emu.Button(b, cmd == "press") {
				fmt.Fprintf(c.out, "%s %s dropped\n", b, cmd)
			}
			return nil
		})
	case "stop":
		return true, c.do(c.stop)
	case "show":
		return true, c.do(c.show)
	case "run":
		name, err := arg()
		if err != nil {
			return true, err
		}
		src, load, err := c.source(name)
		if err != nil {
			return true, err
		}
		return true, c.do(func() error { return c.run(src, load) })
	case "load":
		name, err := arg()
		if err != nil {
			return true, err
		}
		src, err := c.book.Read(vfs.SketchName(name))
		if err != nil {
			return true, err
		}
		return true, c.do(func() error { return c.run(src, c.book.Loader()) })
	case "save":
		name, err := arg()
		if err != nil {
			return true, err
		}
		if c.src == "" {
			return true, errors.New("nothing to save")
		}
		return true, c.book.Write(vfs.SketchName(name), c.src)
	case "ls":
		for _, name := range c.book.List() {
			created, modified, _ := c.book.Meta(name)
			fmt.Fprintf(c.out, "%-36s %s  %s\n", name, created.Format(time.DateTime), modified.Format(time.DateTime))
		}
		fmt.Fprintf(c.out, "%d bytes free\n", c.book.FreeSpace())
	case "snap":
		path, err := arg()
		if err != nil {
			return true, err
		}
		return true, c.do(func() error {
			if c.emu == nil {
				return errors.New("nothing is running")
			}
			return c.emu.SnapshotToFile(path)
		})
	case "restore":
		path, err := arg()
		if err != nil {
			return true, err
		}
		return true, c.do(func() error { return c.restore(path) })
	default:
		return true, fmt.Errorf("unknown command %q, try help", cmd)
	}
	return true, nil
}

// source finds name in the sketchbook first, then on disk.
func (c *console) source(name string) (string, compiler.Loader, error) {
	if src, err := c.book.Read(vfs.SketchName(name)); err == nil {
		return src, c.book.Loader(), nil
	}
	src, err := utils.ReadSource(name)
	if err != nil {
		return "", nil, err
	}
	return src.Text, compiler.DirLoader(src.Dir), nil
}

func (c *console) run(src string, load compiler.Loader) error {
	c.stop()
	prog, err := emulator.CompileWith(src, load)
	if err != nil {
		return err
	}
	emu, err := emulator.New(prog, c.loop, c.display, c.opts...)
	if err != nil {
		return err
	}
	c.emu, c.src = emu, src
	return emu.Start()
}

func (c *console) restore(path string) error {
	c.stop()
	emu, err := emulator.RestoreFromFile(path, c.book.Loader(), c.loop, c.display, c.opts...)
	if err != nil {
		return err
	}
	c.emu, c.src = emu, emu.Program().Source
	return emu.Start()
}

func (c *console) stop() error {
	if c.emu != nil {
		c.emu.Stop()
	}
	return nil
}

func (c *console) show() error {
	fmt.Fprint(c.out, c.display.String())
	if f := c.display.Frequency(); f > 0 {
		fmt.Fprintf(c.out, "piezo %d Hz\n", f)
	}
	if c.emu == nil {
		fmt.Fprintln(c.out, "idle")
		return nil
	}
	fmt.Fprintf(c.out, "%s at %d ms\n", c.emu.State(), c.emu.Millis())
	if err := c.emu.Err(); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
	return nil
}

// startDiskSyncer flushes the sketchbook to store every interval while stop
// is open.
func startDiskSyncer(book *vfs.Sketchbook, store vfs.Store, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if book.Dirty() {
				if err := store.Persist(book); err != nil {
					log.Printf("sketchbook sync: %v", err)
				}
			}
		case <-stop:
			return
		}
	}
}

func complete(line string) []string {
	var out []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, line) {
			out = append(out, cmd)
		}
	}
	return out
}

func main() {
	storage := flag.String("storage", "sketchbook", "sketchbook directory, or a .db file")
	delay := flag.Duration("delay", scheduler.DefaultIterationDelay, "pause between iterations of main's loop")
	live := flag.Bool("live", false, "print every frame as it is drawn")
	flag.Parse()

	book := vfs.NewSketchbook()
	store, err := vfs.OpenStore(*storage)
	if err != nil {
		log.Fatalf("Failed to open sketchbook: %v", err)
	}
	defer store.Close()
	if err := store.Load(book); err != nil {
		log.Fatalf("Failed to load sketchbook: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := scheduler.NewLoop()
	go loop.Run(ctx)

	c := newConsole(os.Stdout, loop, book, []emulator.Option{
		emulator.WithIterationDelay(*delay),
		emulator.WithConsole(os.Stdout),
	})
	c.display.Live = *live

	stopSyncer := make(chan struct{})
	go startDiskSyncer(book, store, 3*time.Second, stopSyncer)
	defer func() {
		close(stopSyncer)
		if book.Dirty() {
			if err := store.Persist(book); err != nil {
				log.Printf("sketchbook sync: %v", err)
			}
		}
	}()

	if flag.NArg() > 0 {
		if _, err := c.exec("run " + flag.Arg(0)); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(complete)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("bb> ")
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stderr, err)
			}
			c.exec("quit")
			return
		}
		ln.AppendHistory(line)
		more, err := c.exec(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if !more {
			return
		}
	}
}
