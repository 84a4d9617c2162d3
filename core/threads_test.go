package core

import (
	"strings"
	"testing"

	"ktick/fixedpoint"
)

// fakeThread is a minimal schedulable unit for exercising the timer core
type fakeThread struct {
	name      string
	priority  int
	nice      int
	recentCPU fixedpoint.Fixed
	blocked   bool
}

func (f *fakeThread) Priority() int                   { return f.priority }
func (f *fakeThread) SetPriority(p int)               { f.priority = p }
func (f *fakeThread) Nice() int                       { return f.nice }
func (f *fakeThread) RecentCPU() fixedpoint.Fixed     { return f.recentCPU }
func (f *fakeThread) SetRecentCPU(r fixedpoint.Fixed) { f.recentCPU = r }

// fakeThreads is a thread subsystem that records what the core asks of it
type fakeThreads struct {
	current *fakeThread
	idle    *fakeThread
	all     []*fakeThread
	ready   []*fakeThread
	mlfqs   bool

	ticks          int
	woken          []*fakeThread
	blockLevels    []Level
	queuedAtBlock  []int
	sleepersOfCore *Timer
}

func newFakeThreads(names ...string) *fakeThreads {
	f := &fakeThreads{idle: &fakeThread{name: "idle", priority: PriMin}}
	for _, name := range names {
		f.all = append(f.all, &fakeThread{name: name, priority: 31})
	}
	f.current = f.idle
	if len(f.all) > 0 {
		f.current = f.all[0]
	}
	return f
}

func (f *fakeThreads) thread(name string) *fakeThread {
	for _, th := range f.all {
		if th.name == name {
			return th
		}
	}
	return nil
}

// run makes th the running thread, as the dispatcher would
func (f *fakeThreads) run(th *fakeThread) {
	f.current = th
}

func (f *fakeThreads) Current() Thread { return f.current }
func (f *fakeThreads) Idle() Thread    { return f.idle }
func (f *fakeThreads) ReadyCount() int { return len(f.ready) }
func (f *fakeThreads) MLFQS() bool     { return f.mlfqs }
func (f *fakeThreads) Tick()           { f.ticks++ }

func (f *fakeThreads) ForEach(fn func(Thread)) {
	fn(f.idle)
	for _, th := range f.all {
		fn(th)
	}
}

func (f *fakeThreads) Block() {
	f.blockLevels = append(f.blockLevels, IntrLevel())
	if f.sleepersOfCore != nil {
		f.queuedAtBlock = append(f.queuedAtBlock, f.sleepersOfCore.sleepers.Len())
	}
	f.current.blocked = true
	if len(f.ready) > 0 {
		f.current = f.ready[0]
		f.ready = f.ready[1:]
	} else {
		f.current = f.idle
	}
}

func (f *fakeThreads) Unblock(t Thread) {
	th := t.(*fakeThread)
	if !th.blocked {
		panic("unblock of running thread " + th.name)
	}
	th.blocked = false
	f.ready = append(f.ready, th)
	f.woken = append(f.woken, th)
}

func (f *fakeThreads) wokenNames() string {
	names := make([]string, len(f.woken))
	for i, th := range f.woken {
		names[i] = th.name
	}
	return strings.Join(names, ",")
}

// fakeHardware records the programmed frequency
type fakeHardware struct {
	frequency int
	err       error
}

func (h *fakeHardware) Configure(frequency int) error {
	h.frequency = frequency
	return h.err
}

func newTestTimer(t *testing.T, threads *fakeThreads) *Timer {
	t.Helper()
	timer, err := NewTimer(DefaultConfig(), threads)
	if err != nil {
		t.Fatalf("NewTimer failed: %v", err)
	}
	threads.sleepersOfCore = timer
	return timer
}

// advance delivers n timer interrupts
func advance(timer *Timer, n int) {
	for i := 0; i < n; i++ {
		timer.Interrupt()
	}
}

func expectPanic(t *testing.T, substr string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Errorf("Expected panic containing %q, got none", substr)
			return
		}
		msg, _ := r.(string)
		if !strings.Contains(msg, substr) {
			t.Errorf("Expected panic containing %q, got %v", substr, r)
		}
	}()
	fn()
}
