package runner

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/torosent/viking/internal/httpclient"
	"github.com/torosent/viking/internal/placeholders"
	"github.com/torosent/viking/internal/variables"
)

// Task is one fully rendered request handed from the producer to a worker.
// Header is shared by every task of a phase and must not be mutated.
type Task struct {
	Method  string
	Target  string
	Header  http.Header
	Timeout time.Duration
}

// renderer turns generator state into tasks. It is owned by the producer.
type renderer struct {
	method  string
	target  *placeholders.Template
	vars    *variables.Set
	query   []queryParam
	header  http.Header
	timeout time.Duration
}

func (r *renderer) next() (Task, error) {
	target, err := r.target.Render(r.vars.Snapshot())
	if err != nil {
		return Task{}, err
	}

	if len(r.query) > 0 {
		q := make(url.Values, len(r.query))
		for _, p := range r.query {
			parts := make([]string, len(p.gens))
			for i, g := range p.gens {
				parts[i] = g.Next()
			}
			q.Set(p.name, strings.Join(parts, ","))
		}
		if target, err = httpclient.AppendQuery(target, q); err != nil {
			return Task{}, err
		}
	}

	return Task{
		Method:  r.method,
		Target:  target,
		Header:  r.header,
		Timeout: r.timeout,
	}, nil
}
