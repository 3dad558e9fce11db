package runner

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/torosent/viking/internal/config"
	"github.com/torosent/viking/internal/httpclient"
	"github.com/torosent/viking/internal/outcome"
	"github.com/torosent/viking/internal/placeholders"
	"github.com/torosent/viking/internal/variables"
)

// plan is the compiled, immutable form of a phase plus the generator state
// owned by its producer.
type plan struct {
	threads    int
	requests   *uint64
	duration   *time.Duration // nil: no time bound
	interval   time.Duration  // 0: snapshot after every event
	rate       int
	arrival    config.ArrivalModel
	backoff    time.Duration
	classifier *outcome.Classifier
	render     *renderer
}

// preparePhase resolves everything a phase needs before any goroutine starts.
// Every error it returns is fatal for the run.
func preparePhase(p config.Phase, lookup variables.LookupFunc) (*plan, error) {
	if p.Threads < 1 {
		return nil, fmt.Errorf("threads must be >= 1, got %d", p.Threads)
	}
	if p.Spec.Get == nil {
		return nil, fmt.Errorf("request spec: get is required")
	}
	get := p.Spec.Get

	rawTarget, err := variables.ResolveConstant(p.Target, lookup)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	header, err := compileHeader(get.Header, lookup)
	if err != nil {
		return nil, err
	}

	vars, err := variables.NewSet(get.Variables, lookup)
	if err != nil {
		return nil, err
	}
	target := placeholders.Compile(rawTarget)
	if err := target.Check(vars.Has); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	query, err := compileQuery(get.Query, lookup)
	if err != nil {
		return nil, err
	}

	classifier, err := outcome.Compile(p.Behaviors.Ok)
	if err != nil {
		return nil, err
	}

	pl := &plan{
		threads:    p.Threads,
		requests:   p.Ends.Requests,
		rate:       p.Rate,
		arrival:    p.Arrival,
		classifier: classifier,
		render: &renderer{
			method:  p.Spec.Method(),
			target:  target,
			vars:    vars,
			query:   query,
			header:  header,
			timeout: p.Timeout.Std(),
		},
	}
	if p.Ends.Time != nil {
		d := p.Ends.Time.Std()
		pl.duration = &d
	}
	if p.Report.Interval != nil {
		pl.interval = p.Report.Interval.Std()
	}
	if p.Behaviors.Error.Backoff != nil {
		pl.backoff = p.Behaviors.Error.Backoff.Std()
	}
	return pl, nil
}

// compileHeader resolves each header's value list once and joins it with ",".
func compileHeader(decl map[string][]config.ValueSource, lookup variables.LookupFunc) (http.Header, error) {
	values := make(map[string]string, len(decl))
	for name, sources := range decl {
		parts := make([]string, 0, len(sources))
		for _, src := range sources {
			v, err := variables.ResolveConstant(src, lookup)
			if err != nil {
				return nil, fmt.Errorf("header %q: %w", name, err)
			}
			parts = append(parts, v)
		}
		values[name] = strings.Join(parts, ",")
	}
	return httpclient.CompileHeaders(values)
}

// queryParam is one query parameter whose value is drawn per request.
type queryParam struct {
	name string
	gens []variables.Generator
}

func compileQuery(decl map[string][]config.ValueSource, lookup variables.LookupFunc) ([]queryParam, error) {
	names := make([]string, 0, len(decl))
	for name := range decl {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]queryParam, 0, len(names))
	for _, name := range names {
		qp := queryParam{name: name}
		for _, src := range decl[name] {
			gen, err := variables.Resolve(src, lookup)
			if err != nil {
				return nil, fmt.Errorf("query %q: %w", name, err)
			}
			qp.gens = append(qp.gens, gen)
		}
		params = append(params, qp)
	}
	return params, nil
}
