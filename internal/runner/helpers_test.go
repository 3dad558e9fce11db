package runner

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/torosent/viking/internal/config"
	"github.com/torosent/viking/internal/ledger"
)

func u64(n uint64) *uint64 { return &n }

func getPhase(target string, threads int) config.Phase {
	return config.Phase{
		Target:  config.StaticValue(target),
		Threads: threads,
		Timeout: config.Millis(2000),
		Spec:    config.Spec{Get: &config.GetSpec{}},
	}
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

type memLedger struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func (m *memLedger) Record(e ledger.Entry) {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
}

func (m *memLedger) Entries() []ledger.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ledger.Entry(nil), m.entries...)
}

func noEnv(string) (string, bool) { return "", false }
