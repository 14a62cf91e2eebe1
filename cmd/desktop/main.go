package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
	"blackbox/pkg/emulator"
	"blackbox/pkg/grid"
	"blackbox/pkg/scheduler"
	"blackbox/pkg/utils"
)

const (
	cell       = 40
	ledRadius  = 15
	statusBar  = 20
	sampleRate = 44100
	amplitude  = 0.3 * math.MaxInt16
)

var keyMap = []struct {
	keys   []ebiten.Key
	button devices.Button
}{
	{[]ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW}, devices.Up},
	{[]ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}, devices.Down},
	{[]ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}, devices.Left},
	{[]ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}, devices.Right},
	{[]ebiten.Key{ebiten.KeyX, ebiten.KeyEnter, ebiten.KeySpace}, devices.Select},
}

// triangle is an endless 16-bit stereo stream; it plays silence while the
// frequency is zero.
type triangle struct {
	freq  atomic.Int64
	phase float64
}

func (t *triangle) Read(p []byte) (int, error) {
	n := len(p) / 4 * 4
	f := float64(t.freq.Load())
	for i := 0; i < n; i += 4 {
		var v int16
		if f > 0 {
			t.phase += f / sampleRate
			t.phase -= math.Floor(t.phase)
			v = int16((1 - 4*math.Abs(t.phase-0.5)) * amplitude)
		}
		binary.LittleEndian.PutUint16(p[i:], uint16(v))
		binary.LittleEndian.PutUint16(p[i+2:], uint16(v))
	}
	return n, nil
}

type Game struct {
	prog  *emulator.Program
	opts  []emulator.Option
	loop  *scheduler.Loop
	emu   *emulator.Emulator
	frame [grid.Size]bool
	tone  *triangle
	err   error
	name  string
}

func (g *Game) DrawMatrix(on []int) {
	g.frame = [grid.Size]bool{}
	for _, i := range on {
		g.frame[i] = true
	}
}

func (g *Game) Tone(freq int) { g.tone.freq.Store(int64(freq)) }
func (g *Game) NoTone()       { g.tone.freq.Store(0) }

// restart throws the current run away and starts the program afresh.
func (g *Game) restart() {
	if g.emu != nil {
		g.emu.Stop()
	}
	g.frame = [grid.Size]bool{}
	g.loop = scheduler.NewLoop()
	emu, err := emulator.New(g.prog, g.loop, g, g.opts...)
	if err != nil {
		g.err = err
		return
	}
	g.emu = emu
	g.err = emu.Start()
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.restart()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) && g.emu != nil {
		path := strings.TrimSuffix(g.name, filepath.Ext(g.name)) + ".snapshot.zip"
		if err := g.emu.SnapshotToFile(path); err != nil {
			log.Printf("snapshot: %v", err)
		} else {
			log.Printf("snapshot written to %s", path)
		}
	}
	if g.emu == nil {
		return nil
	}
	for _, m := range keyMap {
		for _, k := range m.keys {
			if inpututil.IsKeyJustPressed(k) {
				g.emu.Button(m.button, true)
			}
			if inpututil.IsKeyJustReleased(k) {
				g.emu.Button(m.button, false)
			}
		}
	}
	g.loop.RunDue()
	if g.err == nil {
		g.err = g.emu.Err()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Black)
	for i, lit := range g.frame {
		x, y := grid.GetGridCoords(i, grid.Cols)
		clr := colornames.Darkred
		if lit {
			clr = colornames.Red
		}
		vector.DrawFilledCircle(screen, float32(x*cell+cell/2), float32(y*cell+cell/2), ledRadius, clr, true)
	}

	status := "no program"
	if g.emu != nil {
		status = fmt.Sprintf("%s  %dms  %dHz", g.emu.State(), g.emu.Millis(), g.tone.freq.Load())
	}
	if g.err != nil {
		status = g.err.Error()
	}
	ebitenutil.DebugPrintAt(screen, status, 4, grid.Rows*cell+2)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return grid.Cols * cell, grid.Rows*cell + statusBar
}

func main() {
	delay := flag.Duration("delay", scheduler.DefaultIterationDelay, "pause between iterations of main's loop")
	seed := flag.Int64("seed", 1, "seed for random()")
	trace := flag.Bool("trace", false, "log scheduler events")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [flags] program.c")
		os.Exit(2)
	}

	src, err := utils.ReadSource(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}
	prog, err := emulator.CompileWith(src.Text, compiler.DirLoader(src.Dir))
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}

	opts := []emulator.Option{
		emulator.WithIterationDelay(*delay),
		emulator.WithSeed(*seed),
		emulator.WithConsole(os.Stdout),
	}
	if *trace {
		opts = append(opts, emulator.WithLogger(log.Default()))
	}

	g := &Game{prog: prog, opts: opts, tone: &triangle{}, name: src.Path}

	audioCtx := audio.NewContext(sampleRate)
	player, err := audioCtx.NewPlayer(g.tone)
	if err != nil {
		log.Fatalf("Audio init failed: %v", err)
	}
	player.Play()

	g.restart()

	ebiten.SetWindowTitle("Black Box - " + filepath.Base(src.Path))
	ebiten.SetWindowSize(grid.Cols*cell*2, (grid.Rows*cell+statusBar)*2)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
	if g.emu != nil {
		g.emu.Stop()
	}
}
