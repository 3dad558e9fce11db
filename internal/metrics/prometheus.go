package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/torosent/viking/internal/outcome"
)

// Exporter mirrors phase outcomes into a Prometheus registry.
type Exporter struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	phases   prometheus.Counter
}

// NewExporter creates an exporter backed by its own registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viking_requests_total",
				Help: "Total number of requests attempted, by phase and outcome.",
			},
			[]string{"campaign", "phase", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viking_request_duration_seconds",
				Help:    "Latency of completed HTTP exchanges.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"campaign", "phase"},
		),
		phases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "viking_phases_completed_total",
			Help: "Number of phases that ran to completion.",
		}),
	}
	e.registry.MustRegister(e.requests, e.duration, e.phases)
	return e
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// Phase returns an exporter bound to one phase. A nil Exporter yields a nil
// PhaseExporter, which discards observations.
func (e *Exporter) Phase(campaign string, index int) *PhaseExporter {
	if e == nil {
		return nil
	}
	return &PhaseExporter{parent: e, campaign: campaign, phase: strconv.Itoa(index)}
}

// PhaseExporter records events for a single phase.
type PhaseExporter struct {
	parent   *Exporter
	campaign string
	phase    string
}

// Observe records one event.
func (p *PhaseExporter) Observe(ev Event) {
	if p == nil {
		return
	}
	label := "client_error"
	if ev.Kind == KindResponse {
		switch ev.Mark {
		case outcome.MarkSuccess:
			label = "success"
		case outcome.MarkError:
			label = "error"
		default:
			label = "unclassified"
		}
		p.parent.duration.WithLabelValues(p.campaign, p.phase).Observe(ev.Latency.Seconds())
	}
	p.parent.requests.WithLabelValues(p.campaign, p.phase, label).Inc()
}

// Completed marks the phase as finished.
func (p *PhaseExporter) Completed() {
	if p == nil {
		return
	}
	p.parent.phases.Inc()
}

// Server serves an Exporter over HTTP.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	done chan error
}

// Start listens on addr and serves /metrics in the background.
func (e *Exporter) Start(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())

	s := &Server{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		done: make(chan error, 1),
	}
	go func() {
		s.done <- s.srv.Serve(ln)
	}()
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server and waits for the serve loop to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-s.done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
