package envelope

import "math"

// Timer produces a normalized progress in [0,1] over a configured duration.
//
// A call to Play cancels whatever run is in flight: the cancelled run's
// completion callback must never fire. Every run that reaches 1 fires its
// completion callback exactly once.
type Timer interface {
	// SetDuration sets the time in seconds a run takes to go from 0 to 1.
	SetDuration(seconds float64)
	// SetCompletion sets the callback for the end of the next run.
	SetCompletion(fn func(Timer))
	// Play (re)starts the timer at progress start.
	Play(start float64)
}

// TickTimer is a Timer advanced explicitly by its owner, typically once
// per audio block. It never blocks and is not safe for concurrent use.
type TickTimer struct {
	duration   float64
	progress   float64
	running    bool
	run        uint64
	completion func(Timer)
	listeners  listeners[func(float64)]
}

func NewTickTimer() *TickTimer {
	return &TickTimer{duration: Epsilon}
}

func (t *TickTimer) SetDuration(seconds float64) {
	t.duration = FloorDuration(seconds)
}

func (t *TickTimer) SetCompletion(fn func(Timer)) {
	t.completion = fn
}

func (t *TickTimer) Play(start float64) {
	t.run++
	t.progress = clamp01(start)
	t.running = true
}

// Stop cancels the current run without completing it.
func (t *TickTimer) Stop() {
	t.run++
	t.running = false
}

// OnProgress registers fn to be called with the progress of every tick.
// The returned function removes it.
func (t *TickTimer) OnProgress(fn func(progress float64)) (remove func()) {
	return t.listeners.add(fn)
}

func (t *TickTimer) Progress() float64 { return t.progress }
func (t *TickTimer) Running() bool     { return t.running }
func (t *TickTimer) Duration() float64 { return t.duration }

// Advance moves the current run forward by dt seconds. Time left over
// after a run completes is discarded.
func (t *TickTimer) Advance(dt float64) {
	if !t.running || dt <= 0 {
		return
	}
	run := t.run
	t.progress = clamp01(t.progress + dt/t.duration)
	t.listeners.each(func(fn func(float64)) {
		if t.run == run {
			fn(t.progress)
		}
	})
	// a listener may have restarted or stopped the timer
	if t.run != run || t.progress < 1 {
		return
	}
	t.running = false
	if done := t.completion; done != nil {
		t.completion = nil
		done(t)
	}
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
