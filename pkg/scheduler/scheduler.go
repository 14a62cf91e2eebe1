// Package scheduler runs interpreted tasks cooperatively on one goroutine.
// A task is a coroutine: when it sleeps it hands control back to the host
// loop and is resumed by a timer, so an endless user loop never blocks the
// host.
package scheduler

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

// ErrStopped is returned by Sleep once the run has been stopped.
var ErrStopped = errors.New("scheduler: stopped")

// DefaultIterationDelay separates two turns of a Forever task.
const DefaultIterationDelay = time.Millisecond

type State int

const (
	Idle State = iota
	Running
	Sleeping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sleeper is handed to task bodies. Sleep parks the task for d.
type Sleeper interface {
	Sleep(d time.Duration) error
}

// Work is the body of a task.
type Work func(sl Sleeper) error

// Scheduler owns the tasks and timers of one run. It is not safe for
// concurrent use; every call must happen on the host loop's goroutine.
type Scheduler struct {
	host Host

	// IterationDelay is the pause between turns of a Forever task.
	IterationDelay time.Duration

	// OnStop is called once when the run stops, with the error that stopped
	// it or nil.
	OnStop func(err error)

	tasks    map[*task]struct{}
	slots    []*slot
	started  bool
	stopped  bool
	running  int
	sleeping int
	err      error
}

// slot holds the pending timer of a repeating job so Stop can cancel it.
type slot struct {
	timer Timer
}

type task struct {
	s      *Scheduler
	name   string
	next   func() (time.Duration, bool)
	stop   func()
	yield  func(time.Duration) bool
	timer  Timer
	then   func()
	err    error
	dead   bool
	active bool
}

func New(host Host) *Scheduler {
	return &Scheduler{
		host:           host,
		IterationDelay: DefaultIterationDelay,
		tasks:          make(map[*task]struct{}),
	}
}

// Host returns the loop the scheduler arms its timers on.
func (s *Scheduler) Host() Host { return s.host }

func (s *Scheduler) State() State {
	switch {
	case s.stopped:
		return Stopped
	case s.sleeping > 0:
		return Sleeping
	case s.started:
		return Running
	}
	return Idle
}

// Err returns the task error that stopped the run, if any.
func (s *Scheduler) Err() error { return s.err }

// Sleep parks the task until a timer resumes it.
func (t *task) Sleep(d time.Duration) error {
	if t.dead || t.s.stopped {
		return ErrStopped
	}
	if !t.yield(d) {
		t.dead = true
		return ErrStopped
	}
	if t.s.stopped {
		return ErrStopped
	}
	return nil
}

// Go starts work as a new task right away. then runs after work returns
// without error, unless the run has stopped.
func (s *Scheduler) Go(name string, work Work, then func()) {
	if s.stopped {
		return
	}
	s.started = true
	t := &task{s: s, name: name, then: then}
	t.next, t.stop = iter.Pull(func(yield func(time.Duration) bool) {
		t.yield = yield
		t.err = work(t)
	})
	s.tasks[t] = struct{}{}
	s.resume(t)
}

func (s *Scheduler) resume(t *task) {
	t.active = true
	s.running++
	d, parked := t.next()
	s.running--
	t.active = false

	if parked && !s.stopped {
		s.sleeping++
		t.timer = s.host.AfterFunc(d, func() {
			t.timer = nil
			s.sleeping--
			if !s.stopped {
				s.resume(t)
			}
		})
		return
	}
	if parked {
		// Stopped while this task was running; unwind it.
		t.stop()
	}
	delete(s.tasks, t)
	if t.err != nil && !errors.Is(t.err, ErrStopped) {
		s.fail(t.name, t.err)
		return
	}
	if t.then != nil && !s.stopped {
		t.then()
	}
}

// Every runs work as a fresh task every interval, in phase with the moment
// Every was called: a late firing shortens the next delay. An interval of
// zero is treated as one millisecond.
func (s *Scheduler) Every(name string, interval time.Duration, work Work) {
	if s.stopped {
		return
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	start := s.host.Now()
	sl := &slot{}
	s.slots = append(s.slots, sl)
	var arm func()
	arm = func() {
		delay := interval - (s.host.Now()-start)%interval
		sl.timer = s.host.AfterFunc(delay, func() {
			sl.timer = nil
			if s.stopped {
				return
			}
			arm()
			s.Go(name, work, nil)
		})
	}
	arm()
}

// Forever runs step once per turn with IterationDelay between turns, until
// step reports that there is no more to do or the run stops.
func (s *Scheduler) Forever(name string, step func(sl Sleeper) (more bool, err error)) {
	sl := &slot{}
	s.slots = append(s.slots, sl)
	var turn func()
	turn = func() {
		sl.timer = nil
		more := false
		s.Go(name, func(sleeper Sleeper) error {
			var err error
			more, err = step(sleeper)
			return err
		}, func() {
			if more && !s.stopped {
				sl.timer = s.host.AfterFunc(s.IterationDelay, turn)
			}
		})
	}
	turn()
}

// Dispatch starts work for an external event. The event is dropped, and
// false returned, while any task sleeps or once the run has stopped.
func (s *Scheduler) Dispatch(name string, work Work) bool {
	if s.stopped || s.sleeping > 0 || s.running > 0 {
		return false
	}
	s.Go(name, work, nil)
	return true
}

// Stop cancels every timer and unwinds every parked task. It is safe to
// call more than once.
func (s *Scheduler) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	for _, sl := range s.slots {
		if sl.timer != nil {
			sl.timer.Stop()
			sl.timer = nil
		}
	}
	for t := range s.tasks {
		if t.active {
			continue
		}
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
		t.stop()
		delete(s.tasks, t)
	}
	s.sleeping = 0
	if s.OnStop != nil {
		s.OnStop(s.err)
	}
}

func (s *Scheduler) fail(name string, err error) {
	if s.stopped {
		return
	}
	s.err = fmt.Errorf("%s: %w", name, err)
	s.Stop()
}
