package vks

import (
	"time"
)

// TickTimer converts wall-clock time into fixed-step simulation ticks using
// an accumulator. A cap on ticks per frame keeps a long stall (debugger,
// window drag) from triggering a catch-up spiral.
type TickTimer struct {
	tickDuration time.Duration
	maxTicks     int

	last        time.Time
	accumulated time.Duration
	started     bool
}

// NewTickTimer creates a timer producing ticks of the given duration, at
// most maxTicks per Advance call.
func NewTickTimer(tickDuration time.Duration, maxTicks int) *TickTimer {
	return &TickTimer{tickDuration: tickDuration, maxTicks: maxTicks}
}

// Advance consumes the time elapsed since the previous call and returns how
// many fixed ticks fit in it, capped at maxTicks. The first call returns
// zero and only arms the timer.
func (t *TickTimer) Advance(now time.Time) int {
	if !t.started {
		t.started = true
		t.last = now
		return 0
	}
	elapsed := now.Sub(t.last)
	t.last = now
	if elapsed < 0 {
		elapsed = 0
	}
	t.accumulated += elapsed

	ticks := 0
	for t.accumulated >= t.tickDuration && ticks < t.maxTicks {
		t.accumulated -= t.tickDuration
		ticks++
	}
	if ticks == t.maxTicks {
		// Drop the backlog instead of replaying it next frame.
		t.accumulated = 0
	}
	return ticks
}

// TickDuration returns the fixed step length.
func (t *TickTimer) TickDuration() time.Duration {
	return t.tickDuration
}
