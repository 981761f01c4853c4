// Package retry holds the bounded-retry policy and the exponential backoff
// shared by sensor acquisition and metric submission.
package retry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// MinBackoff is the lowest sleep between two attempts, whatever the policy.
const MinBackoff = 3 * time.Second

// Policy bounds a single retry loop. It is read-only while a loop runs.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseBackoff time.Duration `yaml:"base_backoff" env:"BASE_BACKOFF"`
	MaxBackoff  time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`
}

// DefaultPolicy returns five attempts with backoff between 3s and 64s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseBackoff: MinBackoff,
		MaxBackoff:  64 * time.Second,
	}
}

// Validate reports whether the policy can drive a loop.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseBackoff < 0 {
		return errors.New("base_backoff must not be negative")
	}
	if p.MaxBackoff < 0 {
		return errors.New("max_backoff must not be negative")
	}
	return nil
}

// Floor returns the minimum sleep between two attempts. It is never below
// MinBackoff; a larger BaseBackoff raises it.
func (p Policy) Floor() time.Duration {
	return max(p.BaseBackoff, MinBackoff)
}

// Backoff returns how long to wait before attempt (attempt >= 2), given how
// long the previous attempt took:
//
//	max(floor, min(2^attempt, max_backoff) - round(previous))
//
// All terms are whole seconds.
func (p Policy) Backoff(attempt int, previous time.Duration) time.Duration {
	if previous < 0 {
		previous = 0
	}
	capSecs := int64(p.MaxBackoff / time.Second)
	expSecs := int64(math.MaxInt64)
	if attempt < 62 {
		expSecs = int64(1) << uint(max(attempt, 0))
	}
	secs := min(expSecs, capSecs) - int64(math.Round(previous.Seconds()))

	d := time.Duration(secs) * time.Second
	if floor := p.Floor(); d < floor {
		return floor
	}
	return d
}

// Clock is the time source behind every backoff and settle delay.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
}

// NewClock returns the wall clock.
func NewClock() Clock {
	return clock.New()
}
