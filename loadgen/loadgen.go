// Package loadgen is an open-loop HTTP workload generator.
//
// A dispatcher offers one token per inter-arrival gap to a pool of workers.
// When no worker is idle the slot is counted as a skipped iteration instead
// of delaying the schedule, so the offered load does not bend to the
// latency of the target.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

type Config struct {
	URL       string
	Dist      string
	Transport string
	Phases    []Phase
	Workers   int
}

func (c Config) validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if len(c.Phases) == 0 {
		return errors.New("at least one phase is required")
	}
	for i, p := range c.Phases {
		if p.Rate <= 0 || p.Duration <= 0 {
			return fmt.Errorf("phase %d: rate and duration must be > 0", i)
		}
	}
	return nil
}

// Run drives the workload through every phase and returns the collected
// samples. Progress lines are written to out. If ctx is cancelled dispatch
// stops early and the samples gathered so far are returned with ctx.Err().
func Run(ctx context.Context, cfg Config, out io.Writer) (*Collector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cal, err := NewWaitCalculator(cfg.Dist)
	if err != nil {
		return nil, err
	}
	transports := make([]Transport, cfg.Workers)
	for i := range transports {
		if transports[i], err = NewTransport(cfg.Transport, cfg.URL); err != nil {
			return nil, err
		}
	}

	tokens := make(chan struct{})
	reports := make(chan Sample, cfg.Workers*50)

	var workersWg sync.WaitGroup
	for _, tr := range transports {
		w := NewWorker(tokens, reports, tr)
		workersWg.Add(1)
		go func() {
			defer workersWg.Done()
			w.Start()
		}()
	}

	collector := NewCollector(expectedSamples(cfg.Phases))
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		collector.Collect(reports)
	}()

	for i, p := range cfg.Phases {
		fmt.Fprintf(out, "Phase %d: rate=%d, duration=%s\n", i, p.Rate, p.Duration)
	}
	fmt.Fprintln(out, "Starting the test")

	started := time.Now()
	skipped := dispatch(ctx, cfg.Phases, cal, tokens, out)

	close(tokens)
	workersWg.Wait()
	close(reports)
	<-collectorDone
	collector.SkippedIterations = skipped
	collector.Started = started

	return collector, ctx.Err()
}

// dispatch offers tokens until the last phase ends or ctx is done and
// returns the number of skipped iterations.
func dispatch(ctx context.Context, phases []Phase, cal WaitCalculator, tokens chan<- struct{}, out io.Writer) int {
	skipped := 0
	phase := 0
	cal.SetRate(phases[phase].Rate)
	timer := time.NewTimer(phases[phase].Duration)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return skipped
		case <-timer.C:
			phase++
			if phase >= len(phases) {
				fmt.Fprintln(out, "All phases completed")
				return skipped
			}
			timer.Reset(phases[phase].Duration)
			cal.SetRate(phases[phase].Rate)
		case tokens <- struct{}{}:
		default:
			skipped++
		}

		preciseSleep(time.Now().Add(cal.WaitTime()))
	}
}
