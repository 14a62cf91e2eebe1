package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Host is what the scheduler needs from its surroundings: run a function
// after a delay without blocking, and tell the time since start.
type Host interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Duration
}

// Timer is a pending AfterFunc. Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

// Loop is a single-goroutine timer loop. Timers fire in deadline order and,
// for equal deadlines, in the order they were armed. A wall-clock loop is
// driven by Run or RunDue; a simulated loop only moves when Advance is
// called.
type Loop struct {
	mu     sync.Mutex
	sim    bool
	start  time.Time
	now    time.Duration
	seq    uint64
	timers timerHeap
	posted []func()
	wake   chan struct{}
}

// NewLoop returns a loop on the wall clock.
func NewLoop() *Loop {
	return &Loop{start: time.Now(), wake: make(chan struct{}, 1)}
}

// NewSimLoop returns a loop whose clock starts at zero and advances only
// through Advance.
func NewSimLoop() *Loop {
	return &Loop{sim: true, wake: make(chan struct{}, 1)}
}

func (l *Loop) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nowLocked()
}

func (l *Loop) nowLocked() time.Duration {
	if l.sim {
		return l.now
	}
	return time.Since(l.start)
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	t := &timer{loop: l, at: l.nowLocked() + d, seq: l.seq, fn: fn}
	heap.Push(&l.timers, t)
	l.mu.Unlock()
	l.signal()
	return t
}

// Post queues fn to run on the loop goroutine ahead of any timer. It is
// safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of armed timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// next pops the next function due at or before limit.
func (l *Loop) next(limit time.Duration) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.posted) > 0 {
		fn := l.posted[0]
		l.posted = l.posted[1:]
		return fn
	}
	if len(l.timers) == 0 || l.timers[0].at > limit {
		return nil
	}
	t := heap.Pop(&l.timers).(*timer)
	if l.sim && t.at > l.now {
		l.now = t.at
	}
	return t.fn
}

// RunDue runs posted functions and every timer already due, and returns how
// many functions ran. Timers armed by those functions run too if they are
// due.
func (l *Loop) RunDue() int {
	n := 0
	for {
		fn := l.next(l.Now())
		if fn == nil {
			return n
		}
		fn()
		n++
	}
}

// Advance moves a simulated clock forward by d, stopping at every deadline
// on the way so that each timer sees its own firing time.
func (l *Loop) Advance(d time.Duration) {
	l.mu.Lock()
	target := l.now + d
	l.mu.Unlock()
	for {
		fn := l.next(target)
		if fn == nil {
			break
		}
		fn()
	}
	l.mu.Lock()
	if l.now < target {
		l.now = target
	}
	l.mu.Unlock()
}

// Run drives a wall-clock loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunDue()
		var fire <-chan time.Time
		var t *time.Timer
		if wait, ok := l.untilNext(); ok {
			t = time.NewTimer(wait)
			fire = t.C
		}
		select {
		case <-ctx.Done():
			if t != nil {
				t.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-fire:
		}
		if t != nil {
			t.Stop()
		}
	}
}

func (l *Loop) untilNext() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.timers) == 0 {
		return 0, false
	}
	wait := l.timers[0].at - l.nowLocked()
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

type timer struct {
	loop  *Loop
	at    time.Duration
	seq   uint64
	fn    func()
	index int
}

func (t *timer) Stop() bool {
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&l.timers, t.index)
	return true
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
