package scheduler

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// manualHost hands out timers that only fire when the test says so, at
// whatever time the test chooses.
type manualHost struct {
	now    time.Duration
	delays []time.Duration
	fns    []func()
}

func (h *manualHost) Now() time.Duration { return h.now }

func (h *manualHost) AfterFunc(d time.Duration, fn func()) Timer {
	h.delays = append(h.delays, d)
	h.fns = append(h.fns, fn)
	return manualTimer{}
}

type manualTimer struct{}

func (manualTimer) Stop() bool { return true }

func TestSleepDoesNotBlockTimers(t *testing.T) {
	l := NewSimLoop()
	s := New(l)

	ticks := 0
	woke := time.Duration(-1)
	s.Go("main", func(sl Sleeper) error {
		if err := sl.Sleep(500 * time.Millisecond); err != nil {
			return err
		}
		woke = l.Now()
		return nil
	}, nil)
	s.Every("tick", 100*time.Millisecond, func(Sleeper) error {
		ticks++
		return nil
	})

	if s.State() != Sleeping {
		t.Fatalf("State() = %v, want sleeping", s.State())
	}
	l.Advance(450 * time.Millisecond)
	if ticks != 4 {
		t.Errorf("ticks during sleep = %d, want 4", ticks)
	}
	if woke >= 0 {
		t.Errorf("task woke early at %v", woke)
	}

	l.Advance(50 * time.Millisecond)
	if woke != 500*time.Millisecond {
		t.Errorf("task woke at %v, want 500ms", woke)
	}
	if ticks != 5 {
		t.Errorf("ticks = %d, want 5", ticks)
	}
	if s.State() != Running {
		t.Errorf("State() = %v, want running", s.State())
	}
}

func TestDispatch(t *testing.T) {
	l := NewSimLoop()
	s := New(l)

	handled := 0
	handler := func(Sleeper) error {
		handled++
		return nil
	}

	if !s.Dispatch("idle", handler) || handled != 1 {
		t.Fatalf("dispatch while idle: handled = %d, want 1", handled)
	}

	s.Go("main", func(sl Sleeper) error {
		if s.Dispatch("nested", handler) {
			t.Error("dispatch while running was accepted")
		}
		return sl.Sleep(100 * time.Millisecond)
	}, nil)

	if s.Dispatch("sleeping", handler) {
		t.Error("dispatch while sleeping was accepted")
	}
	l.Advance(100 * time.Millisecond)
	if !s.Dispatch("awake", handler) {
		t.Error("dispatch after wake-up was dropped")
	}
	if handled != 2 {
		t.Errorf("handled = %d, want 2", handled)
	}

	s.Stop()
	if s.Dispatch("stopped", handler) {
		t.Error("dispatch after stop was accepted")
	}
	if handled != 2 {
		t.Errorf("handled after stop = %d, want 2", handled)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewSimLoop()
	s := New(l)

	stops := 0
	s.OnStop = func(err error) {
		stops++
		if err != nil {
			t.Errorf("OnStop(%v), want nil", err)
		}
	}

	ticks, turns := 0, 0
	var sleepErr error
	s.Go("main", func(sl Sleeper) error {
		sleepErr = sl.Sleep(time.Hour)
		return sleepErr
	}, nil)
	s.Every("tick", 10*time.Millisecond, func(Sleeper) error {
		ticks++
		return nil
	})
	s.Forever("loop", func(Sleeper) (bool, error) {
		turns++
		return true, nil
	})
	l.Advance(25 * time.Millisecond)

	s.Stop()
	s.Stop()

	if stops != 1 {
		t.Errorf("OnStop called %d times, want 1", stops)
	}
	if !errors.Is(sleepErr, ErrStopped) {
		t.Errorf("sleeping task got %v, want ErrStopped", sleepErr)
	}
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d after stop, want 0", l.Pending())
	}
	if s.State() != Stopped {
		t.Errorf("State() = %v, want stopped", s.State())
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}

	gotTicks, gotTurns := ticks, turns
	l.Advance(time.Second)
	if ticks != gotTicks || turns != gotTurns {
		t.Errorf("work ran after stop: ticks %d -> %d, turns %d -> %d", gotTicks, ticks, gotTurns, turns)
	}
}

func TestStopFromInsideTask(t *testing.T) {
	l := NewSimLoop()
	s := New(l)

	var sleepErr error
	s.Go("main", func(sl Sleeper) error {
		s.Stop()
		sleepErr = sl.Sleep(time.Millisecond)
		return sleepErr
	}, nil)

	if !errors.Is(sleepErr, ErrStopped) {
		t.Errorf("Sleep() after Stop = %v, want ErrStopped", sleepErr)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", l.Pending())
	}
}

func TestEveryStaysInPhase(t *testing.T) {
	h := &manualHost{}
	s := New(h)
	runs := 0
	s.Every("tick", 100*time.Millisecond, func(Sleeper) error {
		runs++
		return nil
	})

	// Fire each timer late; the next delay absorbs the lateness.
	for _, at := range []time.Duration{130, 210, 300, 470} {
		h.now = at * time.Millisecond
		fn := h.fns[len(h.fns)-1]
		fn()
	}

	want := []time.Duration{100, 70, 90, 100, 30}
	for i := range want {
		want[i] *= time.Millisecond
	}
	if !reflect.DeepEqual(h.delays, want) {
		t.Errorf("delays = %v, want %v", h.delays, want)
	}
	if runs != 4 {
		t.Errorf("runs = %d, want 4", runs)
	}
}

func TestForeverWaitsBetweenTurns(t *testing.T) {
	l := NewSimLoop()
	s := New(l)
	s.IterationDelay = 10 * time.Millisecond

	var at []time.Duration
	s.Forever("loop", func(Sleeper) (bool, error) {
		at = append(at, l.Now())
		return len(at) < 3, nil
	})
	l.Advance(time.Second)

	want := []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond}
	if !reflect.DeepEqual(at, want) {
		t.Errorf("turns at %v, want %v", at, want)
	}
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", l.Pending())
	}
	if s.State() != Running {
		t.Errorf("State() = %v, want running", s.State())
	}
}

func TestForeverTurnMaySleep(t *testing.T) {
	l := NewSimLoop()
	s := New(l)
	s.IterationDelay = time.Millisecond

	var at []time.Duration
	s.Forever("loop", func(sl Sleeper) (bool, error) {
		at = append(at, l.Now())
		if err := sl.Sleep(50 * time.Millisecond); err != nil {
			return false, err
		}
		return len(at) < 2, nil
	})
	l.Advance(time.Second)

	want := []time.Duration{0, 51 * time.Millisecond}
	if !reflect.DeepEqual(at, want) {
		t.Errorf("turns at %v, want %v", at, want)
	}
}

func TestTaskErrorStopsRun(t *testing.T) {
	l := NewSimLoop()
	s := New(l)

	cause := errors.New("line 3: division by zero")
	var stopErr error
	s.OnStop = func(err error) { stopErr = err }

	ticks := 0
	s.Every("tick", 5*time.Millisecond, func(Sleeper) error {
		ticks++
		return nil
	})
	s.Go("main", func(sl Sleeper) error {
		if err := sl.Sleep(10 * time.Millisecond); err != nil {
			return err
		}
		return cause
	}, nil)

	l.Advance(10 * time.Millisecond)
	if s.State() != Stopped {
		t.Fatalf("State() = %v, want stopped", s.State())
	}
	if !errors.Is(s.Err(), cause) {
		t.Errorf("Err() = %v, want it to wrap %v", s.Err(), cause)
	}
	if got, want := s.Err().Error(), "main: line 3: division by zero"; got != want {
		t.Errorf("Err() = %q, want %q", got, want)
	}
	if stopErr != s.Err() {
		t.Errorf("OnStop got %v, want %v", stopErr, s.Err())
	}

	n := ticks
	l.Advance(time.Second)
	if ticks != n {
		t.Errorf("timer kept firing after failure: %d -> %d", n, ticks)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Idle, "idle"},
		{Running, "running"},
		{Sleeping, "sleeping"},
		{Stopped, "stopped"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
