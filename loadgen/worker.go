package loadgen

import "time"

// Sample is the outcome of one issued request.
type Sample struct {
	URL        string
	Latency    int64 // microseconds
	StatusCode int
	ErrStr     string
	Timestamp  time.Time
}

// Worker issues one request per token received and reports the sample.
type Worker struct {
	transport Transport
	tokens    <-chan struct{}
	reports   chan<- Sample
}

func NewWorker(tokens <-chan struct{}, reports chan<- Sample, transport Transport) *Worker {
	return &Worker{
		transport: transport,
		tokens:    tokens,
		reports:   reports,
	}
}

// Start runs until the token channel is closed.
func (w *Worker) Start() {
	var sample Sample
	sample.URL = w.transport.URL()

	for range w.tokens {
		start := time.Now()
		w.transport.Issue(&sample)
		sample.Latency = time.Since(start).Microseconds()
		sample.Timestamp = start
		w.reports <- sample
	}
}
