package runner

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/viking/internal/config"
)

// pacer delays the producer between tasks.
type pacer interface {
	Wait(ctx context.Context) error
}

// newPacer returns nil when the phase is unpaced.
func newPacer(rps int, model config.ArrivalModel, opt Options) pacer {
	if rps <= 0 {
		return nil
	}
	switch model {
	case config.ArrivalModelPoisson:
		return &poissonArrival{rate: float64(rps), sample: opt.PoissonSampler}
	default:
		return &uniformArrival{limiter: opt.LimiterFactory(rps)}
	}
}

// uniformArrival delegates pacing to a rate.Limiter (uniform spacing).
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

// poissonArrival samples exponential inter-arrival times to approximate a Poisson process.
// It is only used by the producer goroutine.
type poissonArrival struct {
	rate   float64
	sample func() float64
}

func (p *poissonArrival) Wait(ctx context.Context) error {
	delay := p.nextDelay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *poissonArrival) nextDelay() time.Duration {
	if p == nil || p.rate <= 0 || p.sample == nil {
		return 0
	}
	delay := float64(time.Second) * p.sample() / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay)
}
