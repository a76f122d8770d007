package engine

import (
	"context"
	"time"
)

// Loop drives an engine from a ticker. BeforeStep runs under the engine
// lock right before each step (spawn schedules hook in here); OnFrame runs
// after the lock is released with that frame's snapshot (broadcast hooks
// in here). Run returns when the context is cancelled, which is the stop
// contract for the otherwise unbounded animation loop.
type Loop struct {
	Eng        *Engine
	Interval   time.Duration
	BeforeStep func(frame int64)
	OnFrame    func(Snapshot)
}

// Run steps the engine once per tick until ctx is done. Ticks are treated
// as whole frames regardless of wall-clock jitter; time is modeled in
// frames, not seconds.
func (l *Loop) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Eng.Mu.Lock()
			if l.BeforeStep != nil {
				l.BeforeStep(l.Eng.Frame())
			}
			l.Eng.Step()
			snap := l.Eng.Snapshot()
			l.Eng.Mu.Unlock()
			if l.OnFrame != nil {
				l.OnFrame(snap)
			}
		}
	}
}
