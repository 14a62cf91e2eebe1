package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestLoopFiresInDeadlineOrder(t *testing.T) {
	l := NewSimLoop()
	var got []string
	arm := func(d time.Duration, name string) {
		l.AfterFunc(d, func() { got = append(got, name) })
	}
	arm(30*time.Millisecond, "c")
	arm(10*time.Millisecond, "a")
	arm(20*time.Millisecond, "b")
	arm(10*time.Millisecond, "a2")

	l.Advance(25 * time.Millisecond)
	if want := []string{"a", "a2", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after 25ms got %v, want %v", got, want)
	}
	if l.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", l.Pending())
	}
	l.Advance(5 * time.Millisecond)
	if want := []string{"a", "a2", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after 30ms got %v, want %v", got, want)
	}
}

func TestLoopAdvanceStopsAtEachDeadline(t *testing.T) {
	l := NewSimLoop()
	var seen []time.Duration
	var tick func()
	tick = func() {
		seen = append(seen, l.Now())
		if len(seen) < 3 {
			l.AfterFunc(7*time.Millisecond, tick)
		}
	}
	l.AfterFunc(7*time.Millisecond, tick)
	l.Advance(time.Second)

	want := []time.Duration{7 * time.Millisecond, 14 * time.Millisecond, 21 * time.Millisecond}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("timers saw %v, want %v", seen, want)
	}
	if l.Now() != time.Second {
		t.Errorf("Now() = %v, want 1s", l.Now())
	}
}

func TestLoopTimerStop(t *testing.T) {
	l := NewSimLoop()
	fired := false
	tm := l.AfterFunc(time.Millisecond, func() { fired = true })
	if !tm.Stop() {
		t.Fatal("first Stop() = false")
	}
	if tm.Stop() {
		t.Error("second Stop() = true")
	}
	l.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestLoopPostRunsBeforeTimers(t *testing.T) {
	l := NewSimLoop()
	var got []string
	l.AfterFunc(0, func() { got = append(got, "timer") })
	l.Post(func() { got = append(got, "posted") })

	if n := l.RunDue(); n != 2 {
		t.Errorf("RunDue() = %d, want 2", n)
	}
	if want := []string{"posted", "timer"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLoopRunUntilCancelled(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{})
	go l.Post(func() {
		close(ran)
		l.AfterFunc(time.Millisecond, cancel)
	})

	err := l.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	select {
	case <-ran:
	default:
		t.Error("posted function never ran")
	}
}
