package core

import "ktick/fixedpoint"

// Priorities are recomputed every PriorityInterval ticks
const PriorityInterval = 4

var (
	loadDecay  = fixedpoint.Frac(59, 60)
	loadWeight = fixedpoint.Frac(1, 60)
)

// ComputePriority returns PRI_MAX - recent_cpu/4 - nice*2, rounded to the
// nearest integer and clamped to [PriMin, PriMax].
func ComputePriority(recentCPU fixedpoint.Fixed, nice int) int {
	p := fixedpoint.FromInt(PriMax).Sub(recentCPU.DivInt(4)).SubInt(nice * 2).Round()
	if p > PriMax {
		return PriMax
	}
	if p < PriMin {
		return PriMin
	}
	return p
}

// nextLoadAvg returns (59/60)*loadAvg + (1/60)*ready
func nextLoadAvg(loadAvg fixedpoint.Fixed, ready int) fixedpoint.Fixed {
	return loadDecay.Mul(loadAvg).Add(loadWeight.MulInt(ready))
}

// decayRecentCPU returns (2*loadAvg)/(2*loadAvg+1)*recentCPU + nice
func decayRecentCPU(loadAvg, recentCPU fixedpoint.Fixed, nice int) fixedpoint.Fixed {
	twice := loadAvg.MulInt(2)
	coef := twice.Div(twice.AddInt(1))
	return coef.Mul(recentCPU).AddInt(nice)
}

// mlfqsTick runs the decay engine for tick now. Interrupts are off.
func (t *Timer) mlfqsTick(now int64) {
	cur := t.threads.Current()
	idle := t.threads.Idle()

	if cur != idle {
		cur.SetRecentCPU(cur.RecentCPU().AddInt(1))
	}

	if now%t.freq == 0 {
		ready := t.threads.ReadyCount()
		if cur != idle {
			ready++
		}
		t.updateLoadAvg(ready)
		t.decayAll()
	}

	if now%PriorityInterval == 0 {
		t.updatePriorities()
	}
}

// updateLoadAvg folds the number of runnable threads into the load average
func (t *Timer) updateLoadAvg(ready int) {
	t.loadAvg = nextLoadAvg(t.loadAvg, ready)
	RecordTiming(EvtLoadAvg, uint32(t.ticks), t.loadAvg.Raw(), int32(ready))
}

// decayAll decays every thread's recent CPU using the current load average
func (t *Timer) decayAll() {
	idle := t.threads.Idle()
	loadAvg := t.loadAvg
	t.threads.ForEach(func(th Thread) {
		if th == idle {
			return
		}
		th.SetRecentCPU(decayRecentCPU(loadAvg, th.RecentCPU(), th.Nice()))
	})
}

// updatePriorities recomputes every thread's priority. The sleep queue keeps
// the priorities captured when each thread went to sleep.
func (t *Timer) updatePriorities() {
	idle := t.threads.Idle()
	n := int32(0)
	t.threads.ForEach(func(th Thread) {
		if th == idle {
			return
		}
		th.SetPriority(ComputePriority(th.RecentCPU(), th.Nice()))
		n++
	})
	RecordTiming(EvtPriorities, uint32(t.ticks), n, 0)
}
