// Package sequencer plays an ordered list of labelled phases over time.
//
// A sequence is a finite []Step. Step k is emitted once the delays of steps
// 0..k have elapsed, strictly in order, never skipped. A Run can be cancelled
// at any point; once Cancel returns, nothing else is emitted and no pending
// callback touches the run's state.
package sequencer

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"
)

// Step is one phase of a sequence. Delay is the time between the previous
// emission (or the start of the run) and this one.
type Step struct {
	Label string        `json:"label"`
	Delay time.Duration `json:"delay"`
}

// Uniform builds a sequence where every label waits the same delay.
func Uniform(delay time.Duration, labels ...string) []Step {
	steps := make([]Step, len(labels))
	for i, l := range labels {
		steps[i] = Step{Label: l, Delay: delay}
	}
	return steps
}

// TotalDuration is the time from start until the last step is emitted.
func TotalDuration(steps []Step) time.Duration {
	var total time.Duration
	for _, s := range steps {
		total += s.Delay
	}
	return total
}

// EmitFunc receives each step as it becomes visible. It is called with the
// run locked and must not call back into the Run.
type EmitFunc func(index int, step Step)

// State is the lifecycle position of a Run.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Run is a sequence in progress.
type Run struct {
	clock Clock
	steps []Step
	emit  EmitFunc

	mu    sync.Mutex
	next  int
	state State
	timer Timer
	done  chan struct{}
}

// Start begins playing steps on clock. emit may be nil when the caller only
// polls Emitted. An empty sequence completes immediately.
func Start(clock Clock, steps []Step, emit EmitFunc) *Run {
	r := &Run{
		clock: clock,
		steps: append([]Step(nil), steps...),
		emit:  emit,
		state: StateRunning,
		done:  make(chan struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.steps) == 0 {
		r.finishLocked(StateCompleted)
		return r
	}
	r.scheduleLocked(0)
	return r
}

func (r *Run) scheduleLocked(k int) {
	r.timer = r.clock.AfterFunc(r.steps[k].Delay, func() { r.fire(k) })
}

func (r *Run) fire(k int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A callback that lost the race with Cancel or Stop finds the run
	// finished or already past k.
	if r.state != StateRunning || r.next != k {
		return
	}

	if r.emit != nil {
		r.emit(k, r.steps[k])
	}
	r.next++

	if r.next == len(r.steps) {
		r.finishLocked(StateCompleted)
		return
	}
	r.scheduleLocked(r.next)
}

func (r *Run) finishLocked(s State) {
	r.state = s
	r.timer = nil
	close(r.done)
}

// Cancel stops the run. It reports whether the run was still in progress.
func (r *Run) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return false
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.finishLocked(StateCancelled)
	return true
}

// Done is closed when the run completes or is cancelled.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes or ctx ends.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Emitted returns the steps made visible so far, in order.
func (r *Run) Emitted() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.steps[:r.next]...)
}

// Steps returns the full plan of the run.
func (r *Run) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// DefaultTypewriterInterval is the per-character reveal delay.
const DefaultTypewriterInterval = 20 * time.Millisecond

// Typewriter reveals text one rune at a time. Each step's label is the prefix
// visible after that rune, so the final emission is the whole text.
func Typewriter(clock Clock, text string, interval time.Duration, emit func(prefix string)) *Run {
	steps := make([]Step, 0, utf8.RuneCountInString(text))
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		steps = append(steps, Step{Label: text[:i], Delay: interval})
	}

	var fn EmitFunc
	if emit != nil {
		fn = func(_ int, s Step) { emit(s.Label) }
	}
	return Start(clock, steps, fn)
}
