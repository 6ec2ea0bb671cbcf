package loadgen

import (
	"fmt"
	"math/rand"
	"runtime"
	"time"
)

const (
	DistFixed       = "fixed"
	DistExponential = "exp"
)

// WaitCalculator yields the gap before the next dispatch.
type WaitCalculator interface {
	WaitTime() time.Duration
	SetRate(rate int)
}

func NewWaitCalculator(dist string) (WaitCalculator, error) {
	switch dist {
	case DistFixed:
		return &FixedWait{}, nil
	case DistExponential:
		return &ExponentialWait{}, nil
	default:
		return nil, fmt.Errorf("distribution must be %q or %q, got %q", DistFixed, DistExponential, dist)
	}
}

type FixedWait struct {
	wait time.Duration
}

func (fw *FixedWait) WaitTime() time.Duration {
	return fw.wait
}

func (fw *FixedWait) SetRate(rate int) {
	fw.wait = time.Second / time.Duration(rate)
}

// ExponentialWait draws gaps with mean 1/rate, giving Poisson arrivals.
type ExponentialWait struct {
	rate float64
}

func (ew *ExponentialWait) WaitTime() time.Duration {
	return time.Duration(rand.ExpFloat64() / ew.rate * float64(time.Second))
}

func (ew *ExponentialWait) SetRate(rate int) {
	ew.rate = float64(rate)
}

// preciseSleep sleeps until deadline. Long waits use time.Sleep, short ones
// yield and then busy-spin to keep wake-up jitter in the microsecond range.
func preciseSleep(deadline time.Time) {
	const yieldThreshold = 2 * time.Millisecond
	const spinThreshold = 300 * time.Microsecond

	for {
		now := time.Now()
		if !now.Before(deadline) {
			return
		}
		remaining := deadline.Sub(now)
		if remaining > yieldThreshold {
			time.Sleep(remaining - yieldThreshold)
			continue
		}
		if remaining > spinThreshold {
			runtime.Gosched()
			continue
		}
		for time.Now().Before(deadline) {
		}
		return
	}
}
