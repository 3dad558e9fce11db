// Package runner executes campaigns: ordered phases, each driven by one
// producer goroutine and a fixed pool of worker goroutines.
//
// # Pipeline
//
// For every phase the runner compiles a plan (resolved headers, target
// template, variable generators, outcome classifier, backoff), then wires
//
//	producer --tasks--> workers --events--> aggregator
//
// The task channel holds at most 2×threads tasks, so a slow target pushes
// back on the producer. Workers own their HTTP clients and never share
// mutable state. The aggregator runs on the calling goroutine and owns the
// statistics table; it returns once every worker has exited and the event
// channel is closed.
//
// # Termination
//
// A phase stops generating when its request ceiling is reached, when its
// time budget elapses, or when the run context is cancelled, whichever
// comes first. Queued tasks are still executed. A phase with neither end
// condition runs until the context is cancelled.
//
// # Pacing
//
// A positive rate paces the producer with a [rate.Limiter] (uniform
// arrivals) or exponentially distributed gaps (poisson arrivals).
//
// # Errors
//
// Configuration problems that can only be detected at run time (unset
// environment variables, undeclared template variables, invalid rules) are
// returned before any goroutine starts. Transport failures never abort a
// phase; they are counted as client errors and delay the failing worker by
// the phase backoff.
package runner
