package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/viking/internal/config"
	"github.com/torosent/viking/internal/metrics"
	"github.com/torosent/viking/internal/output"
)

// Result summarizes a campaign run.
type Result struct {
	Phases      []metrics.Snapshot
	Duration    time.Duration
	Interrupted bool
}

// Runner executes campaigns phase by phase.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run executes the phases of campaign in order. A fatal error aborts the
// campaign and is returned. Cancelling ctx ends the current phase early and
// skips the remaining ones.
func (r *Runner) Run(ctx context.Context, name string, campaign config.Campaign) (Result, error) {
	start := r.opt.Now()
	var res Result

	r.opt.Logger.Info("raid started", zap.String("campaign", name), zap.Int("phases", len(campaign.Phases)))
	for idx, phase := range campaign.Phases {
		snap, err := r.RunPhase(ctx, name, idx+1, phase)
		if err != nil {
			r.opt.Logger.Error("raid aborted", zap.String("campaign", name), zap.Int("phase", idx+1), zap.Error(err))
			return res, err
		}
		res.Phases = append(res.Phases, snap)
		if ctx.Err() != nil && idx < len(campaign.Phases)-1 {
			r.opt.Logger.Warn("raid interrupted, skipping remaining phases",
				zap.String("campaign", name),
				zap.Int("skipped", len(campaign.Phases)-idx-1),
			)
			res.Interrupted = true
			break
		}
	}
	if ctx.Err() != nil {
		res.Interrupted = true
	}

	res.Duration = r.opt.Now().Sub(start)
	output.WriteCampaignSummary(r.opt.Out, res.Duration)
	r.opt.Logger.Info("raid finished", zap.String("campaign", name), zap.Duration("elapsed", res.Duration))
	return res, nil
}

// RunPhase executes one phase; number is 1-based. It returns after the
// producer and every worker have exited.
func (r *Runner) RunPhase(ctx context.Context, campaign string, number int, phase config.Phase) (metrics.Snapshot, error) {
	pl, err := preparePhase(phase, r.opt.Lookup)
	if err != nil {
		return metrics.Snapshot{}, fmt.Errorf("phase %d: %w", number, err)
	}

	logger := r.opt.Logger.With(zap.String("campaign", campaign), zap.Int("phase", number))
	logger.Info("phase started",
		zap.String("target", pl.render.target.String()),
		zap.Int("threads", pl.threads),
		zap.Int("rate", pl.rate),
	)

	tasks := make(chan Task, 2*pl.threads)
	events := make(chan metrics.Event, 2*pl.threads)
	start := r.opt.Now()

	exporter := r.opt.Exporter.Phase(campaign, number)
	agg := metrics.NewAggregator(metrics.AggregatorOptions{
		Workers:  pl.threads,
		Interval: pl.interval,
		Start:    start,
		Exporter: exporter,
		Now:      r.opt.Now,
		Report: func(s metrics.Snapshot, final bool) {
			output.WriteSnapshot(r.opt.Out, number, s, final)
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < pl.threads; i++ {
		w := &worker{
			id:         i,
			phase:      number,
			doer:       r.opt.NewDoer(),
			classifier: pl.classifier,
			backoff:    pl.backoff,
			ledger:     r.opt.Ledger,
			tracer:     r.opt.Tracing.Tracer(),
			propagate:  r.opt.Tracing.ShouldPropagate(),
			logger:     logger,
			events:     events,
		}
		g.Go(func() error {
			w.run(gctx, tasks)
			return nil
		})
	}

	prod := &producer{
		render:   pl.render,
		pacer:    newPacer(pl.rate, pl.arrival, r.opt),
		requests: pl.requests,
		duration: pl.duration,
		now:      r.opt.Now,
	}
	g.Go(func() error {
		return prod.run(gctx, tasks)
	})

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(events)
	}()

	snap, aggErr := agg.Run(events)
	if err := <-done; err != nil {
		return snap, fmt.Errorf("phase %d: %w", number, err)
	}
	if aggErr != nil {
		return snap, fmt.Errorf("phase %d: %w", number, aggErr)
	}

	exporter.Completed()
	output.WritePhaseSummary(r.opt.Out, number, snap)
	logger.Info("phase finished",
		zap.Uint64("requests", snap.Totals.Total),
		zap.Uint64("success", snap.Totals.Success),
		zap.Uint64("error", snap.Totals.Error),
		zap.Uint64("client_error", snap.Totals.ClientError),
		zap.Duration("elapsed", snap.Elapsed),
	)
	return snap, nil
}
