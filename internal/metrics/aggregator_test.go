package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/torosent/viking/internal/metrics"
	"github.com/torosent/viking/internal/outcome"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAggregatorReportsEveryEventWithoutInterval(t *testing.T) {
	var reports []metrics.Snapshot
	var finals int
	agg := metrics.NewAggregator(metrics.AggregatorOptions{
		Workers: 2,
		Report: func(s metrics.Snapshot, final bool) {
			reports = append(reports, s)
			if final {
				finals++
			}
		},
	})

	events := make(chan metrics.Event, 3)
	events <- metrics.Event{Worker: 0, Kind: metrics.KindResponse, StatusCode: 200, Mark: outcome.MarkSuccess}
	events <- metrics.Event{Worker: 1, Kind: metrics.KindResponse, StatusCode: 200, Mark: outcome.MarkSuccess}
	events <- metrics.Event{Worker: 1, Kind: metrics.KindTransportError}
	close(events)

	final, err := agg.Run(events)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// baseline + 3 events + final
	if len(reports) != 5 {
		t.Fatalf("reports = %d, want 5", len(reports))
	}
	if finals != 1 {
		t.Errorf("final reports = %d, want 1", finals)
	}
	if reports[0].Totals.Total != 0 {
		t.Errorf("baseline total = %d, want 0", reports[0].Totals.Total)
	}
	if final.Totals.Total != 3 || final.Totals.Success != 2 || final.Totals.ClientError != 1 {
		t.Errorf("final totals = %+v", final.Totals)
	}
}

func TestAggregatorHonorsInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var count int
	agg := metrics.NewAggregator(metrics.AggregatorOptions{
		Workers:  1,
		Interval: time.Second,
		Now:      clock.Now,
		Report:   func(metrics.Snapshot, bool) { count++ },
	})

	events := make(chan metrics.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := agg.Run(events); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	for i := 0; i < 5; i++ {
		events <- metrics.Event{Kind: metrics.KindResponse, StatusCode: 200}
	}
	clock.Advance(1500 * time.Millisecond)
	events <- metrics.Event{Kind: metrics.KindResponse, StatusCode: 200}
	events <- metrics.Event{Kind: metrics.KindResponse, StatusCode: 200}
	close(events)
	<-done

	// baseline + one after the interval elapsed + final
	if count != 3 {
		t.Errorf("reports = %d, want 3", count)
	}
}

func TestAggregatorDrainsAfterBadEvent(t *testing.T) {
	agg := metrics.NewAggregator(metrics.AggregatorOptions{Workers: 1})
	events := make(chan metrics.Event, 3)
	events <- metrics.Event{Worker: 7}
	events <- metrics.Event{Worker: 0, Kind: metrics.KindResponse, StatusCode: 200}
	events <- metrics.Event{Worker: 0, Kind: metrics.KindResponse, StatusCode: 200}
	close(events)

	final, err := agg.Run(events)
	if err == nil {
		t.Fatal("expected error for unknown worker")
	}
	if final.Totals.Total != 2 {
		t.Errorf("total = %d, want 2", final.Totals.Total)
	}
}

func TestAggregatorFeedsExporter(t *testing.T) {
	exp := metrics.NewExporter()
	phase := exp.Phase("smoke", 0)
	agg := metrics.NewAggregator(metrics.AggregatorOptions{Workers: 1, Exporter: phase})
	events := make(chan metrics.Event, 4)
	events <- metrics.Event{Kind: metrics.KindResponse, StatusCode: 200, Mark: outcome.MarkSuccess, Latency: time.Millisecond}
	events <- metrics.Event{Kind: metrics.KindResponse, StatusCode: 500, Mark: outcome.MarkError, Latency: time.Millisecond}
	events <- metrics.Event{Kind: metrics.KindResponse, StatusCode: 302, Latency: time.Millisecond}
	events <- metrics.Event{Kind: metrics.KindTransportError}
	close(events)
	if _, err := agg.Run(events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	phase.Completed()

	count, err := testutil.GatherAndCount(exp.Registry(), "viking_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 4 {
		t.Errorf("viking_requests_total series = %d, want 4 outcome labels", count)
	}
	completed, err := testutil.GatherAndCount(exp.Registry(), "viking_phases_completed_total")
	if err != nil || completed != 1 {
		t.Errorf("viking_phases_completed_total series = %d, %v", completed, err)
	}
}

func TestNilPhaseExporterIsNoop(t *testing.T) {
	var exp *metrics.Exporter
	phase := exp.Phase("x", 0)
	phase.Observe(metrics.Event{})
	phase.Completed()
}
