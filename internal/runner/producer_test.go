package runner

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/torosent/viking/internal/config"
	"github.com/torosent/viking/internal/placeholders"
)

func newTestProducer(t *testing.T, phase config.Phase) *producer {
	t.Helper()
	pl, err := preparePhase(phase, noEnv)
	if err != nil {
		t.Fatalf("preparePhase() error = %v", err)
	}
	return &producer{
		render:   pl.render,
		requests: pl.requests,
		duration: pl.duration,
		now:      time.Now,
	}
}

func collect(t *testing.T, p *producer, ctx context.Context, capacity int) ([]Task, error) {
	t.Helper()
	tasks := make(chan Task, capacity)
	errc := make(chan error, 1)
	go func() { errc <- p.run(ctx, tasks) }()

	var got []Task
	for task := range tasks {
		got = append(got, task)
	}
	return got, <-errc
}

func TestProducerSendsExactlyRequests(t *testing.T) {
	for _, n := range []uint64{0, 1, 7, 250} {
		phase := getPhase("http://x/", 2)
		phase.Ends.Requests = u64(n)

		got, err := collect(t, newTestProducer(t, phase), context.Background(), 4)
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
		if uint64(len(got)) != n {
			t.Errorf("requests=%d: enqueued %d tasks", n, len(got))
		}
	}
}

func TestProducerRendersIncrementingTarget(t *testing.T) {
	phase := getPhase("http://x/{{id}}", 1)
	phase.Ends.Requests = u64(3)
	phase.Spec.Get.Variables = map[string]config.ValueSource{
		"id": config.IncrementValue(0, 1),
	}

	got, err := collect(t, newTestProducer(t, phase), context.Background(), 2)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := []string{"http://x/0", "http://x/1", "http://x/2"}
	if len(got) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(got), len(want))
	}
	for i, task := range got {
		if task.Target != want[i] {
			t.Errorf("task %d target = %q, want %q", i, task.Target, want[i])
		}
		if task.Method != "GET" {
			t.Errorf("task %d method = %q", i, task.Method)
		}
		if task.Timeout != 2*time.Second {
			t.Errorf("task %d timeout = %s", i, task.Timeout)
		}
	}
}

func TestProducerCounterStep(t *testing.T) {
	phase := getPhase("http://x/{{n}}", 1)
	phase.Ends.Requests = u64(4)
	phase.Spec.Get.Variables = map[string]config.ValueSource{
		"n": config.IncrementValue(10, 5),
	}

	got, err := collect(t, newTestProducer(t, phase), context.Background(), 1)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := []string{"http://x/10", "http://x/15", "http://x/20", "http://x/25"}
	for i := range want {
		if got[i].Target != want[i] {
			t.Errorf("task %d target = %q, want %q", i, got[i].Target, want[i])
		}
	}
}

func TestProducerAppendsQuery(t *testing.T) {
	phase := getPhase("http://x/items?sort=asc", 1)
	phase.Ends.Requests = u64(2)
	phase.Spec.Get.Query = map[string][]config.ValueSource{
		"page": {config.IncrementValue(1, 1)},
		"tags": {config.StaticValue("a"), config.StaticValue("b")},
	}

	got, err := collect(t, newTestProducer(t, phase), context.Background(), 2)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for i, task := range got {
		u, err := url.Parse(task.Target)
		if err != nil {
			t.Fatalf("parse %q: %v", task.Target, err)
		}
		q := u.Query()
		if q.Get("sort") != "asc" {
			t.Errorf("task %d lost existing query: %q", i, task.Target)
		}
		if q.Get("tags") != "a,b" {
			t.Errorf("task %d tags = %q, want a,b", i, q.Get("tags"))
		}
		if want := []string{"1", "2"}[i]; q.Get("page") != want {
			t.Errorf("task %d page = %q, want %q", i, q.Get("page"), want)
		}
	}
}

func TestProducerStopsAfterDuration(t *testing.T) {
	phase := getPhase("http://x/", 1)
	d := config.Millis(100)
	phase.Ends.Time = &d

	start := time.Now()
	got, err := collect(t, newTestProducer(t, phase), context.Background(), 2)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(got) == 0 {
		t.Error("expected tasks within the time budget")
	}
	if elapsed < 100*time.Millisecond || elapsed > 2*time.Second {
		t.Errorf("producer ran for %s, want about 100ms", elapsed)
	}
}

func TestProducerZeroTimeBoundSendsNothing(t *testing.T) {
	phase := getPhase("http://x/", 1)
	d := config.Millis(0)
	phase.Ends.Time = &d

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := collect(t, newTestProducer(t, phase), ctx, 4)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("enqueued %d tasks, want 0", len(got))
	}
	if ctx.Err() != nil {
		t.Error("zero time bound did not end the phase")
	}
}

func TestProducerFirstEndConditionWins(t *testing.T) {
	phase := getPhase("http://x/", 1)
	phase.Ends.Requests = u64(5)
	d := config.Seconds(60)
	phase.Ends.Time = &d

	start := time.Now()
	got, err := collect(t, newTestProducer(t, phase), context.Background(), 1)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("enqueued %d tasks, want 5", len(got))
	}
	if time.Since(start) > 5*time.Second {
		t.Error("request ceiling did not end the phase")
	}
}

func TestProducerStopsOnCancel(t *testing.T) {
	p := newTestProducer(t, getPhase("http://x/", 1))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	tasks := make(chan Task, 2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.run(ctx, tasks); err != nil {
			t.Errorf("run() error = %v", err)
		}
	}()
	go func() {
		for range tasks {
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer without end condition did not stop on cancel")
	}
}

func TestProducerBackpressure(t *testing.T) {
	phase := getPhase("http://x/", 1)
	phase.Ends.Requests = u64(100)
	p := newTestProducer(t, phase)

	tasks := make(chan Task, 2)
	errc := make(chan error, 1)
	go func() { errc <- p.run(context.Background(), tasks) }()

	time.Sleep(50 * time.Millisecond)
	if n := len(tasks); n != 2 {
		t.Fatalf("queue holds %d tasks, want it full at 2", n)
	}
	count := 0
	for range tasks {
		count++
	}
	if err := <-errc; err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if count != 100 {
		t.Errorf("received %d tasks, want 100", count)
	}
}

func TestPreparePhaseRejectsUndeclaredVariable(t *testing.T) {
	phase := getPhase("http://x/{{id}}", 1)
	if _, err := preparePhase(phase, noEnv); !errors.Is(err, placeholders.ErrUnresolved) {
		t.Fatalf("preparePhase() error = %v, want ErrUnresolved", err)
	}
}

func TestPreparePhaseRejectsMalformedTarget(t *testing.T) {
	for _, target := range []string{"http://x/{{a b}}", "http://x/{{}}", "http://x/{{ id"} {
		phase := getPhase(target, 1)
		phase.Spec.Get.Variables = map[string]config.ValueSource{"id": config.IncrementValue(0, 1)}
		if _, err := preparePhase(phase, noEnv); !errors.Is(err, placeholders.ErrMalformed) {
			t.Errorf("preparePhase(%q) error = %v, want ErrMalformed", target, err)
		}
	}
}
