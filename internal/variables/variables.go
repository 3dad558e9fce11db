// Package variables turns declared value sources into live generators that a
// producer consumes once per request.
package variables

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/torosent/viking/internal/config"
)

// ErrUnsetEnv is returned when an env value source names a variable that is not set.
var ErrUnsetEnv = errors.New("environment variable is not set")

// LookupFunc looks up an environment variable.
type LookupFunc func(name string) (string, bool)

// Generator yields one value per call.
type Generator interface {
	Next() string
}

// Constant always yields the same value.
type Constant string

func (c Constant) Next() string { return string(c) }

// Counter is a monotonically increasing counter. It is not safe for concurrent
// use and must stay owned by a single producer.
type Counter struct {
	current uint64
	step    uint64
}

// NewCounter returns a counter positioned at start.
func NewCounter(start, step uint64) *Counter {
	return &Counter{current: start, step: step}
}

// Current returns the value the next call to Next will yield.
func (c *Counter) Current() uint64 { return c.current }

// Advance moves the counter forward by one step. It saturates at
// math.MaxUint64 instead of wrapping.
func (c *Counter) Advance() {
	if c.current > math.MaxUint64-c.step {
		c.current = math.MaxUint64
		return
	}
	c.current += c.step
}

// Next returns the current value as a string and advances the counter.
func (c *Counter) Next() string {
	v := strconv.FormatUint(c.current, 10)
	c.Advance()
	return v
}

// Resolve builds a generator for src. Env sources are looked up immediately.
func Resolve(src config.ValueSource, lookup LookupFunc) (Generator, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	switch src.Kind() {
	case config.SourceStatic:
		return Constant(*src.Static), nil
	case config.SourceEnv:
		val, ok := lookup(*src.Env)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsetEnv, *src.Env)
		}
		return Constant(val), nil
	case config.SourceIncrement:
		return NewCounter(src.Increment.Start, src.Increment.Step), nil
	default:
		return nil, errors.New("value source must set exactly one of static, env or increment")
	}
}

// ResolveConstant resolves a source that must not vary per request.
func ResolveConstant(src config.ValueSource, lookup LookupFunc) (string, error) {
	if src.Kind() == config.SourceIncrement {
		return "", errors.New("increment value source is not allowed here")
	}
	gen, err := Resolve(src, lookup)
	if err != nil {
		return "", err
	}
	return gen.Next(), nil
}

// Set is a named group of generators owned by one producer.
type Set struct {
	names []string
	gens  map[string]Generator
}

// NewSet resolves every declared binding. The first failure is returned.
func NewSet(bindings map[string]config.ValueSource, lookup LookupFunc) (*Set, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &Set{names: names, gens: make(map[string]Generator, len(bindings))}
	for _, name := range names {
		gen, err := Resolve(bindings[name], lookup)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		s.gens[name] = gen
	}
	return s, nil
}

// Names returns the declared names in sorted order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Has reports whether name is declared.
func (s *Set) Has(name string) bool {
	_, ok := s.gens[name]
	return ok
}

// Snapshot draws one value from every generator.
func (s *Set) Snapshot() map[string]string {
	out := make(map[string]string, len(s.names))
	for _, name := range s.names {
		out[name] = s.gens[name].Next()
	}
	return out
}
