package core

import (
	"errors"
	"fmt"
)

// ErrRoundLimit is returned by RoundLimiter.Next once the ceiling is passed.
var ErrRoundLimit = errors.New("round limit reached")

// RoundLimiter counts decision rounds of a single run against a ceiling.
// It is owned by one execution loop and therefore not synchronized.
type RoundLimiter struct {
	max   int
	count int
}

// NewRoundLimiter creates a limiter allowing max rounds. A max below one is
// treated as one.
func NewRoundLimiter(max int) *RoundLimiter {
	if max < 1 {
		max = 1
	}
	return &RoundLimiter{max: max}
}

// Next starts a new round. It returns ErrRoundLimit when the new round
// would exceed the ceiling; the rejected round is not counted.
func (rl *RoundLimiter) Next() error {
	if rl.count >= rl.max {
		return fmt.Errorf("%w: %d", ErrRoundLimit, rl.max)
	}
	rl.count++
	return nil
}

// Count returns the number of rounds started.
func (rl *RoundLimiter) Count() int { return rl.count }

// Remaining returns how many rounds may still start.
func (rl *RoundLimiter) Remaining() int { return rl.max - rl.count }

// Max returns the ceiling.
func (rl *RoundLimiter) Max() int { return rl.max }
