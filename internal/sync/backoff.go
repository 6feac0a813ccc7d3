package sync

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Backoff computes the delay before a retry.
type Backoff interface {
	// Delay returns the wait before retry n, where n starts at 1.
	Delay(n int) time.Duration
}

// LinearBackoff waits Base, 2*Base, 3*Base, ... capped at Max.
type LinearBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay implements Backoff.
func (b LinearBackoff) Delay(n int) time.Duration {
	if n < 1 || b.Base <= 0 {
		return 0
	}
	return capDelay(time.Duration(n)*b.Base, b.Max)
}

// ExponentialBackoff waits Base, 2*Base, 4*Base, ... capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay implements Backoff.
func (b ExponentialBackoff) Delay(n int) time.Duration {
	if n < 1 || b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < n; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}
	return capDelay(d, b.Max)
}

func capDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// Policy names accepted by ParseBackoff.
const (
	PolicyLinear      = "linear"
	PolicyExponential = "exponential"
)

// ParseBackoff builds a Backoff from a policy name.
func ParseBackoff(policy string, base, max time.Duration) (Backoff, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case PolicyLinear:
		return LinearBackoff{Base: base, Max: max}, nil
	case PolicyExponential, "":
		return ExponentialBackoff{Base: base, Max: max}, nil
	}
	return nil, fmt.Errorf("unknown backoff policy %q (want %s or %s)", policy, PolicyLinear, PolicyExponential)
}
