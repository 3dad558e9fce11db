package metrics

import (
	"time"

	"github.com/torosent/viking/internal/outcome"
)

// EventKind distinguishes completed exchanges from transport failures.
type EventKind int

const (
	KindResponse EventKind = iota
	KindTransportError
)

// Event is emitted by a worker once per attempted request.
type Event struct {
	Worker     int
	Kind       EventKind
	StatusCode int
	Mark       outcome.Mark
	Latency    time.Duration
	Err        error
}
