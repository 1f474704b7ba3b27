package core

import (
	"errors"
	"sync"
)

// ErrStepLimitReached is returned by StepLimiter.Increment once all steps are used.
var ErrStepLimitReached = errors.New("step limit reached")

// StepLimiter enforces a maximum number of model round trips per turn.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a new limiter with a max number of steps.
// If max == 0, unlimited steps are allowed.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment claims the next step. It returns ErrStepLimitReached without
// counting when the limit is already used up.
func (sl *StepLimiter) Increment() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max > 0 && sl.count >= sl.max {
		return ErrStepLimitReached
	}
	sl.count++

	return nil
}

// Count returns the current number of steps taken.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// Remaining returns how many steps are left before hitting the limit.
func (sl *StepLimiter) Remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max == 0 {
		return -1 // unlimited
	}

	return sl.max - sl.count
}
