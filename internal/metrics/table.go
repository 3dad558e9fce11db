package metrics

import (
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/viking/internal/outcome"
)

// WorkerStats holds the counters of one worker.
type WorkerStats struct {
	Total       uint64 `json:"total"`
	Success     uint64 `json:"success"`
	Error       uint64 `json:"error"`
	ClientError uint64 `json:"client_error"`
}

func (w *WorkerStats) add(o WorkerStats) {
	w.Total += o.Total
	w.Success += o.Success
	w.Error += o.Error
	w.ClientError += o.ClientError
}

// Snapshot is a read-only copy of a Table at a point in time.
type Snapshot struct {
	Workers        []WorkerStats
	Totals         WorkerStats
	Elapsed        time.Duration
	RequestsPerSec float64
	PerThreadRPS   float64

	MinLatency  time.Duration
	MaxLatency  time.Duration
	MeanLatency time.Duration
	P50Latency  time.Duration
	P90Latency  time.Duration
	P99Latency  time.Duration

	StatusCodes []StatusBucket
	Errors      map[string]uint64
}

// Table is the per-phase statistics table. It has a single owner.
type Table struct {
	workers      []WorkerStats
	hist         *hdrhistogram.Histogram
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	samples      int64
	statusCodes  map[int]uint64
	errorsByType map[string]uint64
}

// NewTable creates a table with one record per worker index.
func NewTable(workers int) *Table {
	if workers < 0 {
		workers = 0
	}
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Table{
		workers:      make([]WorkerStats, workers),
		hist:         hdrhistogram.New(1, 60_000_000, 3),
		statusCodes:  make(map[int]uint64),
		errorsByType: make(map[string]uint64),
	}
}

// Record applies one event.
func (t *Table) Record(ev Event) error {
	if ev.Worker < 0 || ev.Worker >= len(t.workers) {
		return fmt.Errorf("event from unknown worker %d", ev.Worker)
	}
	if ev.Kind != KindResponse && ev.Kind != KindTransportError {
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
	stats := &t.workers[ev.Worker]
	stats.Total++

	switch ev.Kind {
	case KindResponse:
		switch ev.Mark {
		case outcome.MarkSuccess:
			stats.Success++
		case outcome.MarkError:
			stats.Error++
		case outcome.MarkNone:
		}
		t.statusCodes[ev.StatusCode]++
		t.recordLatency(ev.Latency)
	case KindTransportError:
		stats.ClientError++
		t.errorsByType[ErrorCategory(ev.Err)]++
	}
	return nil
}

func (t *Table) recordLatency(latency time.Duration) {
	if latency <= 0 {
		return
	}
	us := latency.Microseconds()
	if us < t.hist.LowestTrackableValue() {
		us = t.hist.LowestTrackableValue()
	}
	if us > t.hist.HighestTrackableValue() {
		us = t.hist.HighestTrackableValue()
	}
	_ = t.hist.RecordValue(us)

	t.sumLatency += latency
	t.samples++
	if t.minLatency == 0 || latency < t.minLatency {
		t.minLatency = latency
	}
	if latency > t.maxLatency {
		t.maxLatency = latency
	}
}

// Snapshot copies the current state.
func (t *Table) Snapshot(elapsed time.Duration) Snapshot {
	s := Snapshot{
		Workers:    append([]WorkerStats(nil), t.workers...),
		Elapsed:    elapsed,
		MinLatency: t.minLatency,
		MaxLatency: t.maxLatency,
	}
	for _, w := range t.workers {
		s.Totals.add(w)
	}

	if elapsed > 0 {
		s.RequestsPerSec = float64(s.Totals.Total) / elapsed.Seconds()
		if len(t.workers) > 0 {
			s.PerThreadRPS = s.RequestsPerSec / float64(len(t.workers))
		}
	}

	if t.samples > 0 {
		s.MeanLatency = time.Duration(int64(t.sumLatency) / t.samples)
	}
	if t.hist.TotalCount() > 0 {
		s.P50Latency = time.Duration(t.hist.ValueAtQuantile(50)) * time.Microsecond
		s.P90Latency = time.Duration(t.hist.ValueAtQuantile(90)) * time.Microsecond
		s.P99Latency = time.Duration(t.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	s.StatusCodes = FlattenStatusBuckets(t.statusCodes)
	if len(t.errorsByType) > 0 {
		s.Errors = make(map[string]uint64, len(t.errorsByType))
		for k, v := range t.errorsByType {
			s.Errors[k] = v
		}
	}
	return s
}
