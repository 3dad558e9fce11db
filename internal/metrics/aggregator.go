package metrics

import (
	"time"
)

// ReportFunc receives snapshots. final is true only for the last one.
type ReportFunc func(s Snapshot, final bool)

// AggregatorOptions configure an Aggregator.
type AggregatorOptions struct {
	Workers  int
	Interval time.Duration // 0 reports after every event
	Start    time.Time     // phase start; defaults to construction time
	Report   ReportFunc
	Exporter *PhaseExporter
	Now      func() time.Time // optional injection for tests
}

// Aggregator is the single consumer of a phase's event stream.
type Aggregator struct {
	opt        AggregatorOptions
	table      *Table
	lastReport time.Time
}

func NewAggregator(opt AggregatorOptions) *Aggregator {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Start.IsZero() {
		opt.Start = opt.Now()
	}
	if opt.Interval < 0 {
		opt.Interval = 0
	}
	return &Aggregator{opt: opt, table: NewTable(opt.Workers)}
}

// Run consumes events until the channel is closed and returns the final
// snapshot. A malformed event does not stop consumption; the first such error
// is returned after the channel closes so senders are never left blocked.
func (a *Aggregator) Run(events <-chan Event) (Snapshot, error) {
	a.report(false)

	var firstErr error
	for ev := range events {
		if err := a.table.Record(ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		a.opt.Exporter.Observe(ev)

		if a.opt.Interval == 0 || a.opt.Now().Sub(a.lastReport) > a.opt.Interval {
			a.report(false)
		}
	}

	final := a.report(true)
	return final, firstErr
}

func (a *Aggregator) report(final bool) Snapshot {
	now := a.opt.Now()
	a.lastReport = now
	snap := a.table.Snapshot(now.Sub(a.opt.Start))
	if a.opt.Report != nil {
		a.opt.Report(snap, final)
	}
	return snap
}
