package runner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/viking/internal/httpclient"
	"github.com/torosent/viking/internal/ledger"
	"github.com/torosent/viking/internal/metrics"
	"github.com/torosent/viking/internal/outcome"
	"github.com/torosent/viking/internal/tracing"
)

// worker executes tasks with its own client and reports one event per task.
type worker struct {
	id         int
	phase      int
	doer       httpclient.Doer
	classifier *outcome.Classifier
	backoff    time.Duration
	ledger     Ledger
	tracer     trace.Tracer
	propagate  bool
	logger     *zap.Logger
	events     chan<- metrics.Event
}

// run drains tasks until the channel is closed. Requests are not cancelled
// with ctx so queued work completes; only the backoff sleep observes it.
func (w *worker) run(ctx context.Context, tasks <-chan Task) {
	defer httpclient.CloseIdle(w.doer)
	reqCtx := context.WithoutCancel(ctx)
	for task := range tasks {
		if err := w.execute(reqCtx, task); err != nil {
			w.logger.Debug("request failed",
				zap.Int("worker", w.id),
				zap.String("target", task.Target),
				zap.Error(err),
			)
			_ = sleepContext(ctx, w.backoff)
		}
	}
}

// execute performs one request and returns the transport error, if any.
func (w *worker) execute(ctx context.Context, task Task) error {
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}
	ctx, span := tracing.StartRequestSpan(ctx, w.tracer, task.Method, task.Target, w.phase, w.id)

	start := time.Now()
	status, content, err := w.do(ctx, task)
	latency := time.Since(start)

	if err != nil {
		tracing.EndRequestSpan(span, 0, "", err)
		w.events <- metrics.Event{Worker: w.id, Kind: metrics.KindTransportError, Latency: latency, Err: err}
		if w.ledger != nil {
			w.ledger.Record(ledger.Err(task.Target, err))
		}
		return err
	}

	mark := w.classifier.Classify(status)
	tracing.EndRequestSpan(span, status, mark.String(), nil)
	w.events <- metrics.Event{Worker: w.id, Kind: metrics.KindResponse, StatusCode: status, Mark: mark, Latency: latency}
	if w.ledger != nil {
		w.ledger.Record(ledger.Ok(task.Target, status, content))
	}
	return nil
}

func (w *worker) do(ctx context.Context, task Task) (int, string, error) {
	req, err := httpclient.NewRequest(ctx, task.Method, task.Target, task.Header)
	if err != nil {
		return 0, "", err
	}
	if w.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := w.doer.Do(req)
	if err != nil {
		return 0, "", err
	}
	content, err := httpclient.ConsumeBody(resp, w.ledger != nil)
	if err != nil {
		w.logger.Debug("reading response body", zap.Int("worker", w.id), zap.Error(err))
	}
	return resp.StatusCode, content, nil
}
