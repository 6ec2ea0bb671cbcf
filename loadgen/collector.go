package loadgen

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

type Collector struct {
	Samples           []Sample
	SkippedIterations int
	// Started is when dispatch began.
	Started time.Time
	// SLO, when set, is the latency budget counted in Stats.
	SLO time.Duration
}

func NewCollector(size int) *Collector {
	return &Collector{
		Samples: make([]Sample, 0, size),
	}
}

// Collect appends samples until reports is closed.
func (c *Collector) Collect(reports <-chan Sample) {
	for sample := range reports {
		c.Samples = append(c.Samples, sample)
	}
}

// Trim returns a collector with the samples issued after the first warmup
// and before the last cooldown of a run that lasted total. Skipped
// iterations carry no timestamp and are kept as they are.
func (c *Collector) Trim(warmup, cooldown, total time.Duration) *Collector {
	from := c.Started.Add(warmup)
	to := c.Started.Add(total - cooldown)
	out := &Collector{
		SkippedIterations: c.SkippedIterations,
		Started:           from,
		SLO:               c.SLO,
	}
	for _, sample := range c.Samples {
		if !sample.Timestamp.Before(from) && sample.Timestamp.Before(to) {
			out.Samples = append(out.Samples, sample)
		}
	}
	return out
}

// Stats summarises a finished run. Latencies are in microseconds.
type Stats struct {
	Duration          time.Duration
	TotalRequests     int
	NumErrors         int
	SkippedIterations int
	SLOViolations     int
	StatusCodes       map[int]int
	SuccessRate       float64 // successful requests per second
	MinLatency        int64
	P50Latency        int64
	P95Latency        int64
	MaxLatency        int64
}

func (c *Collector) Stats(duration time.Duration) Stats {
	st := Stats{
		Duration:          duration,
		TotalRequests:     len(c.Samples),
		SkippedIterations: c.SkippedIterations,
		StatusCodes:       make(map[int]int),
	}
	latencies := make([]int64, 0, len(c.Samples))
	for _, sample := range c.Samples {
		if sample.ErrStr != "" {
			st.NumErrors++
		} else {
			st.StatusCodes[sample.StatusCode]++
		}
		if c.SLO > 0 && sample.Latency > c.SLO.Microseconds() {
			st.SLOViolations++
		}
		latencies = append(latencies, sample.Latency)
	}
	if secs := duration.Seconds(); secs > 0 {
		st.SuccessRate = float64(st.TotalRequests-st.NumErrors) / secs
	}
	if len(latencies) == 0 {
		return st
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	st.MinLatency = latencies[0]
	st.P50Latency = latencies[len(latencies)/2]
	st.P95Latency = latencies[len(latencies)*95/100]
	st.MaxLatency = latencies[len(latencies)-1]
	return st
}

// PrintStats writes the summary table. Skipped iterations and errors are
// highlighted in red.
func (c *Collector) PrintStats(w io.Writer, duration time.Duration) {
	st := c.Stats(duration)
	secs := duration.Seconds()
	perSec := func(n int) float64 {
		if secs == 0 {
			return 0
		}
		return float64(n) / secs
	}

	fmt.Fprintf(w, "\033[31m| %-25s | %-12d | %-13.1f |\033[0m\n", "Skipped iterations", st.SkippedIterations, perSec(st.SkippedIterations))
	codes := make([]int, 0, len(st.StatusCodes))
	for code := range st.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := st.StatusCodes[code]
		fmt.Fprintf(w, "| %-25s | %-12d | %-13.1f |\n", "status code: "+strconv.Itoa(code), count, perSec(count))
	}

	fmt.Fprintln(w, "+---------------------------+---------------------------+")
	fmt.Fprintf(w, "\033[1;31m| %-25s | %-25v |\033[0m\n", "Number of errors", st.NumErrors)
	fmt.Fprintf(w, "| %-25s | %-25.6f |\n", "Successful requests", st.SuccessRate)
	fmt.Fprintf(w, "| %-25s | %-25d |\n", "Min latency", st.MinLatency)
	fmt.Fprintf(w, "| %-25s | %-25d |\n", "P50 latency", st.P50Latency)
	fmt.Fprintf(w, "| %-25s | %-25d |\n", "P95 latency", st.P95Latency)
	fmt.Fprintf(w, "| %-25s | %-25d |\n", "Max latency", st.MaxLatency)
	if c.SLO > 0 {
		fmt.Fprintf(w, "| %-25s | %-25d |\n", "SLO violations ("+c.SLO.String()+")", st.SLOViolations)
	}
	fmt.Fprintf(w, "| %-25s | %-25d |\n", "Total requests", st.TotalRequests)
	fmt.Fprintf(w, "| %-25s | %-25v |\n", "Duration of test", duration)
	fmt.Fprintln(w, "+---------------------------+---------------------------+")
}

// WriteCSV exports every sample, one row per request.
func (c *Collector) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"url", "latency", "status_code", "error", "timestamp"}); err != nil {
		return err
	}
	for _, sample := range c.Samples {
		record := []string{
			sample.URL,
			strconv.FormatInt(sample.Latency, 10),
			strconv.Itoa(sample.StatusCode),
			sample.ErrStr,
			sample.Timestamp.Format(time.RFC3339Nano),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
