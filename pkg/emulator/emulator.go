// Package emulator runs one Black Box program: it compiles and binds the
// source, starts main on the cooperative scheduler, arms the periodic
// callbacks and feeds button events to the program.
package emulator

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
	"blackbox/pkg/interp"
	"blackbox/pkg/scheduler"
)

// ErrStarted is returned by Start when the run has already been started.
var ErrStarted = errors.New("emulator: already started")

// Program is a parsed and validated source, ready to run any number of
// times.
type Program struct {
	Source string
	AST    *compiler.Program
	Shape  *compiler.Shape
}

// Compile parses and validates src. Programs that include local headers
// need CompileWith.
func Compile(src string) (*Program, error) {
	return CompileWith(src, nil)
}

// CompileWith is Compile with a loader for local headers.
func CompileWith(src string, load compiler.Loader) (*Program, error) {
	ast, shape, err := compiler.Check(src, load)
	if err != nil {
		return nil, err
	}
	return &Program{Source: src, AST: ast, Shape: shape}, nil
}

// timeouts pairs each periodic callback slot with the define giving its
// interval in milliseconds.
var timeouts = []struct {
	slot   devices.Slot
	define string
}{
	{devices.SlotTimeout1, "BLACKBOX_TIMEOUT_1"},
	{devices.SlotTimeout2, "BLACKBOX_TIMEOUT_2"},
}

// Emulator is one run of a program. Apart from construction, every method
// must be called on the goroutine that drives the host.
type Emulator struct {
	prog  *Program
	host  scheduler.Host
	dev   *devices.BlackBox
	env   *interp.Environment
	in    *interp.Interpreter
	sched *scheduler.Scheduler

	logger    *log.Logger
	console   io.Writer
	seed      int64
	budget    int
	delay     time.Duration
	onStop    func(err error)
	toneTimer scheduler.Timer
	started   bool
	t0        time.Duration
}

type Option func(*Emulator)

// WithIterationDelay sets the pause between two turns of main's loop.
func WithIterationDelay(d time.Duration) Option {
	return func(e *Emulator) { e.delay = d }
}

// WithStepBudget bounds the statements a task may run without sleeping.
// Zero disables the bound.
func WithStepBudget(n int) Option {
	return func(e *Emulator) { e.budget = n }
}

// WithConsole receives debug_print and print output.
func WithConsole(w io.Writer) Option {
	return func(e *Emulator) { e.console = w }
}

// WithLogger traces the run: start, dropped events, stop.
func WithLogger(l *log.Logger) Option {
	return func(e *Emulator) { e.logger = l }
}

// WithSeed seeds random().
func WithSeed(seed int64) Option {
	return func(e *Emulator) { e.seed = seed }
}

// WithStopHandler is called once when the run stops, with the error that
// stopped it or nil.
func WithStopHandler(fn func(err error)) Option {
	return func(e *Emulator) { e.onStop = fn }
}

// New binds prog to a fresh device drawing on r. Global initializers run
// here, so a failing one is reported by New.
func New(prog *Program, host scheduler.Host, r devices.Renderer, opts ...Option) (*Emulator, error) {
	e := &Emulator{
		prog:    prog,
		host:    host,
		console: io.Discard,
		seed:    1,
		budget:  interp.DefaultStepBudget,
		delay:   scheduler.DefaultIterationDelay,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.t0 = host.Now()
	e.dev = devices.New(r, e.after)
	e.env = interp.NewEnvironment(e.dev)
	e.env.Console = e.console
	e.env.Rand = rand.New(rand.NewSource(e.seed))
	e.env.Clock = func() time.Duration { return host.Now() - e.t0 }

	if err := interp.Bind(prog.AST, prog.Shape, e.env); err != nil {
		return nil, err
	}
	e.in = interp.New(e.env, prog.Shape)
	e.in.StepBudget = e.budget

	e.sched = scheduler.New(host)
	e.sched.IterationDelay = e.delay
	e.sched.OnStop = e.stopped
	return e, nil
}

// after arms the piezo auto-stop. Only the latest tone's timer matters.
func (e *Emulator) after(d time.Duration, fn func()) {
	if e.toneTimer != nil {
		e.toneTimer.Stop()
	}
	e.toneTimer = e.host.AfterFunc(d, func() {
		e.toneTimer = nil
		fn()
	})
}

func (e *Emulator) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// Start runs the statements of main before its trailing loop as one task.
// When they finish, the periodic callbacks whose interval is defined are
// armed and the loop starts, one iteration per turn.
func (e *Emulator) Start() error {
	if e.started {
		return ErrStarted
	}
	e.started = true
	e.logf("start: %d declarations", len(e.prog.AST.Decls))

	returned := false
	e.sched.Go("main", func(sl scheduler.Sleeper) error {
		done, err := e.in.Prologue(sl)
		returned = done
		return err
	}, func() {
		e.armTimeouts()
		if returned {
			e.logf("main returned before its loop")
			return
		}
		e.sched.Forever("loop", func(sl scheduler.Sleeper) (bool, error) {
			return e.in.Step(sl)
		})
	})
	return nil
}

func (e *Emulator) armTimeouts() {
	for _, t := range timeouts {
		v, ok := e.env.Const(t.define)
		if !ok {
			continue
		}
		ms, ok := v.(int64)
		if !ok {
			e.logf("%s is not an integer; %s not armed", t.define, t.slot)
			continue
		}
		slot := t.slot
		e.sched.Every(slot.String(), time.Duration(ms)*time.Millisecond, func(sl scheduler.Sleeper) error {
			return e.invoke(sl, slot)
		})
	}
}

// invoke runs whatever function the slot holds when the event fires; the
// program may have rebound it.
func (e *Emulator) invoke(sl scheduler.Sleeper, slot devices.Slot) error {
	cb := e.dev.Callback(slot)
	if cb == nil {
		return nil
	}
	return e.in.Invoke(sl, cb)
}

// Button records the new button state and dispatches the button's
// callback, on press and on release alike. It reports whether the
// callback was dispatched; events are dropped before Start, while any task
// sleeps and after Stop.
func (e *Emulator) Button(b devices.Button, pressed bool) bool {
	e.dev.Buttons.Set(b, pressed)
	slot := devices.SlotForButton(b)
	if !e.started {
		return false
	}
	ok := e.sched.Dispatch(slot.String(), func(sl scheduler.Sleeper) error {
		return e.invoke(sl, slot)
	})
	if !ok {
		e.logf("dropped %s (%s)", slot, e.sched.State())
	}
	return ok
}

// Stop ends the run. It is safe to call more than once.
func (e *Emulator) Stop() {
	e.sched.Stop()
}

func (e *Emulator) stopped(err error) {
	if e.toneTimer != nil {
		e.toneTimer.Stop()
		e.toneTimer = nil
	}
	e.dev.Piezo.NoTone()
	if err != nil {
		e.logf("stopped: %v", err)
	} else {
		e.logf("stopped")
	}
	if e.onStop != nil {
		e.onStop(err)
	}
}

func (e *Emulator) State() scheduler.State { return e.sched.State() }

// Err returns the error that stopped the run, if any.
func (e *Emulator) Err() error { return e.sched.Err() }

func (e *Emulator) Device() *devices.BlackBox { return e.dev }
func (e *Emulator) Env() *interp.Environment  { return e.env }
func (e *Emulator) Program() *Program         { return e.prog }
func (e *Emulator) Millis() int64             { return e.env.Millis() }
func (e *Emulator) String() string            { return fmt.Sprintf("emulator(%s)", e.State()) }
