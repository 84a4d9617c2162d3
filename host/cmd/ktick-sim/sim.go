package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"ktick/core"
	"ktick/kthread"
)

// options describes one simulated run
type options struct {
	Timer core.Config

	Ticks        int64
	CPUThreads   int
	Sleepers     int
	SleepTicks   int64
	WorkMicros   int64
	Nice         int
	LoopsPerTick int64
	Report       bool
	Dump         bool
	Plot         string // PNG path; empty disables plotting
}

// cpu models processor speed: every loopsPerTick busy-wait iterations
// the timer raises its interrupt.
type cpu struct {
	loopsPerTick int64
	acc          int64
}

func (c *cpu) spin(loops int64) {
	c.acc += loops
	for c.acc >= c.loopsPerTick {
		c.acc -= c.loopsPerTick
		core.RaiseIRQ(core.TimerVector)
	}
}

type workload uint8

const (
	cpuBound workload = iota
	sleeper
)

type simulation struct {
	opts  options
	out   io.Writer
	sched *kthread.Scheduler
	timer *core.Timer
	kind  map[*kthread.Thread]workload

	lastSecond int64
	samples    []sample
}

func newSimulation(opts options, out io.Writer) (*simulation, error) {
	sched := kthread.New(opts.Timer.MLFQS)
	timer, err := core.TimerInit(opts.Timer, sched, nil)
	if err != nil {
		return nil, err
	}
	timer.SetSpinner((&cpu{loopsPerTick: opts.LoopsPerTick}).spin)

	return &simulation{
		opts:  opts,
		out:   out,
		sched: sched,
		timer: timer,
		kind:  make(map[*kthread.Thread]workload),
	}, nil
}

// spawn creates the workload threads, then retires main
func (s *simulation) spawn() error {
	for i := 0; i < s.opts.CPUThreads; i++ {
		t, err := s.sched.Create("cpu"+strconv.Itoa(i), kthread.PriDefault)
		if err != nil {
			return err
		}
		s.kind[t] = cpuBound
		// The last CPU-bound thread carries the configured nice value
		if i == s.opts.CPUThreads-1 && s.opts.Nice != 0 {
			if err := s.sched.SetNice(t, s.opts.Nice); err != nil {
				return err
			}
		}
	}
	for i := 0; i < s.opts.Sleepers; i++ {
		t, err := s.sched.Create("sleep"+strconv.Itoa(i), kthread.PriDefault)
		if err != nil {
			return err
		}
		s.kind[t] = sleeper
	}

	if s.sched.Running().Name() != "main" {
		s.sched.Yield()
	}
	s.sched.Exit()
	return nil
}

// act runs the current thread's work up to its next blocking point.
// Sleepers do a little busy work and go back to sleep.
func (s *simulation) act() {
	for i := 0; i <= s.opts.Sleepers; i++ {
		t := s.sched.Running()
		if s.kind[t] != sleeper || t.Status() != kthread.Running {
			return
		}
		if s.opts.WorkMicros > 0 {
			s.timer.UDelay(s.opts.WorkMicros)
		}
		if s.sched.Running() != t {
			// Preempted during the busy work
			return
		}
		s.timer.Sleep(s.opts.SleepTicks)
	}
}

func (s *simulation) run() error {
	s.timer.Calibrate()
	if err := s.spawn(); err != nil {
		return err
	}

	freq := int64(s.timer.Frequency())
	for s.timer.Ticks() < s.opts.Ticks {
		s.act()
		core.RaiseIRQ(core.TimerVector)

		// Busy work can deliver ticks too, so a second boundary may be
		// crossed rather than landed on
		if sec := s.timer.Ticks() / freq; sec > s.lastSecond {
			s.lastSecond = sec
			s.record()
			if s.opts.Report {
				s.reportSecond()
			}
		}
	}

	s.summary()
	if s.opts.Plot != "" {
		if err := renderPlot(s.samples, s.opts.Plot); err != nil {
			return fmt.Errorf("plot %s: %w", s.opts.Plot, err)
		}
		fmt.Fprintf(s.out, "Wrote %s\n", s.opts.Plot)
	}
	return nil
}

func (s *simulation) record() {
	smp := sample{
		second:     s.lastSecond,
		loadAvg:    s.timer.LoadAvg(),
		priorities: make(map[string]int),
	}
	for _, t := range s.sched.Threads() {
		if t.Status != kthread.Dying {
			smp.priorities[t.Name] = t.Priority
		}
	}
	s.samples = append(s.samples, smp)
}

func (s *simulation) reportSecond() {
	fmt.Fprintf(s.out, "t=%ds load_avg=%s running=%s ready=%d sleepers=%d\n",
		s.lastSecond, s.timer.LoadAvg(),
		s.sched.Running().Name(), s.sched.ReadyCount(), len(s.timer.Sleepers()))
}

func (s *simulation) summary() {
	stats := s.timer.Stats()
	schedStats := s.sched.Stats()

	fmt.Fprintf(s.out, "\nticks=%d freq=%dHz loops_per_tick=%d load_avg=%s mlfqs=%v\n",
		stats.Ticks, stats.Frequency, stats.LoopsPerTick, stats.LoadAvg, stats.MLFQS)
	fmt.Fprintf(s.out, "idle_ticks=%d thread_ticks=%d switches=%d\n\n",
		schedStats.IdleTicks, schedStats.ThreadTicks, schedStats.Switches)

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPRI\tNICE\tRECENT_CPU\tCPU_TICKS")
	for _, t := range s.sched.Threads() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%d\n",
			t.ID, t.Name, t.Status, t.Priority, t.Nice, t.RecentCPU, t.CPUTicks)
	}
	w.Flush()

	s.timer.PrintStats()
	if s.opts.Dump {
		core.DumpTimingRing()
	}
}
