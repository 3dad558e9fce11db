// Command targetserver is a local HTTP target for trying campaigns, including
// the one printed by `viking init`.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type server struct {
	errorRate float64
	latency   time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	errorRate := flag.Float64("error-rate", 0, "Fraction of /items requests answered with 503 (0.0-1.0)")
	latency := flag.Duration("latency", 0, "Delay added to every response")
	flag.Parse()

	s := newServer(*errorRate, *latency, time.Now().UnixNano())
	log.Printf("target server listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, s.routes()))
}

func newServer(errorRate float64, latency time.Duration, seed int64) *server {
	return &server{errorRate: errorRate, latency: latency, rnd: rand.New(rand.NewSource(seed))}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/items/", s.handleItem)
	mux.HandleFunc("/status/", s.handleStatus)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})
	return s.delay(mux)
}

func (s *server) delay(next http.Handler) http.Handler {
	if s.latency <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) fail() bool {
	if s.errorRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < s.errorRate
}

func (s *server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/items/")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "unknown item"})
		return
	}
	if s.fail() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "injected failure"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"page":   r.URL.Query().Get("page"),
		"accept": r.Header.Get("Accept"),
	})
}

// handleStatus answers with the status code named in the path, e.g. /status/418.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	w.WriteHeader(code)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
