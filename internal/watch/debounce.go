package watch

import (
	"sync"
	"time"
)

var afterFunc = time.AfterFunc

// Debouncer collapses bursts of triggers into a single callback invocation after a quiet period.
type Debouncer struct {
	mutex      sync.Mutex
	delay      time.Duration
	timer      *time.Timer
	generation uint64
	callback   func()
}

// NewDebouncer constructs a Debouncer invoking callback once triggers stop for delay.
func NewDebouncer(delay time.Duration, callback func()) *Debouncer {
	return &Debouncer{delay: delay, callback: callback}
}

// Trigger restarts the quiet period.
func (debouncer *Debouncer) Trigger() {
	debouncer.mutex.Lock()
	defer debouncer.mutex.Unlock()
	if debouncer.timer != nil {
		debouncer.timer.Stop()
	}
	debouncer.generation++
	scheduledGeneration := debouncer.generation
	debouncer.timer = afterFunc(debouncer.delay, func() {
		debouncer.fire(scheduledGeneration)
	})
}

// Stop cancels any pending callback.
func (debouncer *Debouncer) Stop() {
	debouncer.mutex.Lock()
	defer debouncer.mutex.Unlock()
	debouncer.generation++
	if debouncer.timer != nil {
		debouncer.timer.Stop()
		debouncer.timer = nil
	}
}

// fire runs the callback unless a later Trigger or Stop superseded the timer that scheduled it.
func (debouncer *Debouncer) fire(scheduledGeneration uint64) {
	debouncer.mutex.Lock()
	if scheduledGeneration != debouncer.generation {
		debouncer.mutex.Unlock()
		return
	}
	debouncer.timer = nil
	debouncer.mutex.Unlock()
	debouncer.callback()
}
