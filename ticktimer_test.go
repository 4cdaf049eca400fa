package vks

import (
	"testing"
	"time"
)

func TestTickTimerFirstAdvanceArmsOnly(t *testing.T) {
	timer := NewTickTimer(10*time.Millisecond, 8)
	base := time.Now()

	if got := timer.Advance(base); got != 0 {
		t.Errorf("first advance = %d ticks, want 0", got)
	}
}

func TestTickTimerAccumulatesFraction(t *testing.T) {
	timer := NewTickTimer(10*time.Millisecond, 8)
	base := time.Now()
	timer.Advance(base)

	if got := timer.Advance(base.Add(25 * time.Millisecond)); got != 2 {
		t.Errorf("advance(25ms) = %d ticks, want 2", got)
	}
	// The leftover 5ms carries into the next window.
	if got := timer.Advance(base.Add(30 * time.Millisecond)); got != 1 {
		t.Errorf("advance(+5ms) = %d ticks, want 1 from the remainder", got)
	}
}

func TestTickTimerCapsAndDropsBacklog(t *testing.T) {
	timer := NewTickTimer(10*time.Millisecond, 4)
	base := time.Now()
	timer.Advance(base)

	if got := timer.Advance(base.Add(time.Second)); got != 4 {
		t.Errorf("advance(1s) = %d ticks, want cap of 4", got)
	}
	// The backlog is dropped, not replayed.
	if got := timer.Advance(base.Add(time.Second + 5*time.Millisecond)); got != 0 {
		t.Errorf("advance(+5ms) = %d ticks, want 0 after backlog drop", got)
	}
}

func TestTickTimerIgnoresClockGoingBackwards(t *testing.T) {
	timer := NewTickTimer(10*time.Millisecond, 8)
	base := time.Now()
	timer.Advance(base)

	if got := timer.Advance(base.Add(-time.Second)); got != 0 {
		t.Errorf("advance(backwards) = %d ticks, want 0", got)
	}
}
