package loadgen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phase is a period of constant target request rate.
type Phase struct {
	Rate     int // requests per second
	Duration time.Duration
}

// ParsePhases builds phases from comma-separated rates and durations
// (in seconds), e.g. "10,20,50" and "5,5,10".
func ParsePhases(rates, durations string) ([]Phase, error) {
	if strings.TrimSpace(rates) == "" {
		return nil, errors.New("at least one rate must be specified")
	}
	rs, err := parseInts(rates)
	if err != nil {
		return nil, fmt.Errorf("invalid rate: %w", err)
	}
	ds, err := parseInts(durations)
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %w", err)
	}
	if len(rs) != len(ds) {
		return nil, fmt.Errorf("rates and durations must have the same length (%d != %d)", len(rs), len(ds))
	}

	phases := make([]Phase, len(rs))
	for i := range rs {
		phases[i] = Phase{Rate: rs[i], Duration: time.Duration(ds[i]) * time.Second}
	}
	return phases, nil
}

// TotalDuration is the sum of all phase durations.
func TotalDuration(phases []Phase) time.Duration {
	var total time.Duration
	for _, p := range phases {
		total += p.Duration
	}
	return total
}

// maxPrealloc bounds the samples allocated up front; longer runs grow the
// slice with append.
const maxPrealloc = 1 << 20

// expectedSamples sizes the collector buffer.
func expectedSamples(phases []Phase) int {
	n := 10000 // padding
	for _, p := range phases {
		n += p.Rate * int(p.Duration/time.Second)
		if n >= maxPrealloc {
			return maxPrealloc
		}
	}
	return n
}

func parseInts(list string) ([]int, error) {
	var out []int
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%d must be > 0", n)
		}
		out = append(out, n)
	}
	return out, nil
}
