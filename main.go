//go:build !js

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
	"blackbox/pkg/emulator"
	"blackbox/pkg/interp"
	"blackbox/pkg/peripherals"
	"blackbox/pkg/scheduler"
	"blackbox/pkg/utils"
	"blackbox/pkg/vfs"
)

// press is a scripted button press and release at a point of simulated
// time.
type press struct {
	at     time.Duration
	button devices.Button
}

// parsePresses reads a comma separated script such as "up@100ms,select@2s".
func parsePresses(script string) ([]press, error) {
	var out []press
	for _, item := range strings.Split(script, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, at, ok := strings.Cut(item, "@")
		if !ok {
			return nil, fmt.Errorf("press %q: want BUTTON@DURATION", item)
		}
		b, err := devices.ParseButton(name)
		if err != nil {
			return nil, fmt.Errorf("press %q: %w", item, err)
		}
		d, err := time.ParseDuration(at)
		if err != nil {
			return nil, fmt.Errorf("press %q: %w", item, err)
		}
		out = append(out, press{at: d, button: b})
	}
	slices.SortStableFunc(out, func(a, b press) int { return int(a.at - b.at) })
	return out, nil
}

type batchConfig struct {
	duration time.Duration
	presses  []press
	seed     int64
	budget   int
	trace    bool
}

// runBatch runs prog on a simulated clock for cfg.duration and returns the
// stopped run together with everything it drew and played.
func runBatch(prog *emulator.Program, cfg batchConfig, console io.Writer) (*emulator.Emulator, *peripherals.Recorder, error) {
	loop := scheduler.NewSimLoop()
	rec := &peripherals.Recorder{Clock: loop.Now}
	var r devices.Renderer = rec
	opts := []emulator.Option{
		emulator.WithConsole(console),
		emulator.WithSeed(cfg.seed),
		emulator.WithStepBudget(cfg.budget),
	}
	if cfg.trace {
		logger := log.New(console, "trace: ", 0)
		r = peripherals.Fanout{rec, peripherals.ConsoleLog{L: logger}}
		opts = append(opts, emulator.WithLogger(logger))
	}

	emu, err := emulator.New(prog, loop, r, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := emu.Start(); err != nil {
		return nil, nil, err
	}
	for _, p := range cfg.presses {
		loop.AfterFunc(p.at, func() {
			emu.Button(p.button, true)
			emu.Button(p.button, false)
		})
	}
	loop.Advance(cfg.duration)
	runErr := emu.Err()
	emu.Stop()
	return emu, rec, runErr
}

func main() {
	inPath := flag.String("in", "", "program source file")
	sketch := flag.String("sketch", "", "run a program from the sketchbook instead of -in")
	check := flag.Bool("check", false, "only parse and validate the program")
	runFor := flag.Duration("run", 2*time.Second, "simulated time to run the program for")
	presses := flag.String("press", "", "scripted presses, e.g. up@100ms,select@2s")
	seed := flag.Int64("seed", 1, "seed for random()")
	budget := flag.Int("budget", interp.DefaultStepBudget, "statements a task may run without sleeping")
	trace := flag.Bool("trace", false, "log every device notification and scheduler event")
	storagePath := flag.String("storage", "sketchbook", "sketchbook directory, or a .db file")
	snapshotPath := flag.String("snapshot", "", "write a snapshot of the final state to this file")
	flag.Parse()

	if (*inPath == "") == (*sketch == "") {
		fmt.Fprintln(os.Stderr, "provide exactly one of -in or -sketch")
		flag.Usage()
		os.Exit(2)
	}

	src, load, err := readSource(*inPath, *sketch, *storagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read program: %v\n", err)
		os.Exit(1)
	}

	prog, err := emulator.CompileWith(src, load)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compilation failed: %v\n", err)
		if ex := compiler.Excerpt(err); ex != "" {
			fmt.Fprintf(os.Stderr, "  |> %s\n", ex)
		}
		os.Exit(1)
	}
	if *check {
		for _, f := range compiler.UnusedFunctions(prog.AST) {
			fmt.Printf("warning: line %d: function %s is never called\n", f.Line, f.Name)
		}
		fmt.Printf("ok: %d declarations, device root %s\n", len(prog.AST.Decls), prog.Shape.Root)
		return
	}

	script, err := parsePresses(*presses)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	emu, rec, runErr := runBatch(prog, batchConfig{
		duration: *runFor,
		presses:  script,
		seed:     *seed,
		budget:   *budget,
		trace:    *trace,
	}, os.Stdout)
	if emu == nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", runErr)
		os.Exit(1)
	}

	for _, e := range rec.Events() {
		fmt.Println(e)
	}
	fmt.Print(peripherals.RenderText(rec.Last()))
	fmt.Printf("run complete: %d ms, piezo %d Hz\n", emu.Millis(), emu.Device().Piezo.Frequency())

	if *snapshotPath != "" {
		if err := emu.SnapshotToFile(*snapshotPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write snapshot %q: %v\n", *snapshotPath, err)
			os.Exit(1)
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", runErr)
		os.Exit(1)
	}
}

// readSource loads the program either from a host file, resolving local
// includes next to it, or from the sketchbook.
func readSource(inPath, sketch, storagePath string) (string, compiler.Loader, error) {
	if inPath != "" {
		src, err := utils.ReadSource(inPath)
		if err != nil {
			return "", nil, err
		}
		return src.Text, compiler.DirLoader(src.Dir), nil
	}

	store, err := vfs.OpenStore(storagePath)
	if err != nil {
		return "", nil, err
	}
	defer store.Close()
	book := vfs.NewSketchbook()
	if err := store.Load(book); err != nil {
		return "", nil, err
	}
	src, err := book.Read(vfs.SketchName(sketch))
	if errors.Is(err, vfs.ErrFileNotFound) {
		return "", nil, fmt.Errorf("no sketch %q in %s", sketch, storagePath)
	}
	return src, book.Loader(), err
}
