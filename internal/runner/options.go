package runner

import (
	"io"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/viking/internal/httpclient"
	"github.com/torosent/viking/internal/ledger"
	"github.com/torosent/viking/internal/metrics"
	"github.com/torosent/viking/internal/tracing"
	"github.com/torosent/viking/internal/variables"
)

// Ledger receives one entry per attempted request. *ledger.Writer satisfies it.
type Ledger interface {
	Record(e ledger.Entry)
}

// Options configure a Runner. Only Out is commonly set; everything else has
// a usable default.
type Options struct {
	Out      io.Writer         // snapshots and summaries (stderr by default)
	Logger   *zap.Logger       // nop by default
	Ledger   Ledger            // nil disables the ledger
	Exporter *metrics.Exporter // nil disables Prometheus export
	Tracing  *tracing.Provider // nil uses a no-op tracer
	Lookup   variables.LookupFunc

	NewDoer        func() httpclient.Doer      // one per worker; optional injection for tests
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	PoissonSampler func() float64              // optional injection for tests
	Now            func() time.Time            // optional injection for tests
	RandomSeed     int64
}

func (o *Options) normalize() {
	if o.Out == nil {
		o.Out = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Lookup == nil {
		o.Lookup = os.LookupEnv
	}
	if o.NewDoer == nil {
		o.NewDoer = func() httpclient.Doer { return httpclient.NewClient(0) }
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	if o.PoissonSampler == nil {
		seed := o.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		o.PoissonSampler = rand.New(rand.NewSource(seed)).ExpFloat64
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}
