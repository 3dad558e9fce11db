// Package ledger records every attempted request of a raid as one JSON line.
package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Open when another writer holds the ledger file.
var ErrLocked = errors.New("ledger is locked by another process")

// Entry is one ledger line.
type Entry struct {
	Request  string   `json:"request"`
	Response Response `json:"response"`
}

// Response holds exactly one of Ok or Err.
type Response struct {
	Ok  *OkResponse `json:"ok,omitempty"`
	Err *string     `json:"err,omitempty"`
}

// OkResponse is a completed HTTP exchange.
type OkResponse struct {
	Code    int    `json:"code"`
	Content string `json:"content"`
}

// Ok builds the entry for a completed exchange.
func Ok(request string, code int, content string) Entry {
	return Entry{Request: request, Response: Response{Ok: &OkResponse{Code: code, Content: content}}}
}

// Err builds the entry for a transport failure.
func Err(request string, err error) Entry {
	msg := err.Error()
	return Entry{Request: request, Response: Response{Err: &msg}}
}

const queueSize = 1024

// Writer appends entries to a file from a single background goroutine.
// Record is safe for concurrent use; Close must be called exactly once
// after all producers of entries have stopped.
type Writer struct {
	file    *os.File
	lock    *flock.Flock
	entries chan Entry
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// Open takes an exclusive lock on path, truncates it and starts the writer.
func Open(path string) (*Writer, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock ledger %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	w := &Writer{
		file:    file,
		lock:    lock,
		entries: make(chan Entry, queueSize),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Record queues an entry. It blocks only while the queue is full.
func (w *Writer) Record(e Entry) {
	if w == nil {
		return
	}
	w.entries <- e
}

func (w *Writer) run() {
	defer close(w.done)

	buf := bufio.NewWriter(w.file)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for e := range w.entries {
		if err := enc.Encode(e); err != nil {
			w.setErr(fmt.Errorf("write ledger entry: %w", err))
		}
	}
	if err := buf.Flush(); err != nil {
		w.setErr(fmt.Errorf("flush ledger: %w", err))
	}
}

func (w *Writer) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

// Close drains pending entries, flushes and releases the file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	close(w.entries)
	<-w.done

	w.mu.Lock()
	err := w.err
	w.mu.Unlock()

	if cerr := w.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close ledger: %w", cerr)
	}
	if uerr := w.lock.Unlock(); uerr != nil && err == nil {
		err = fmt.Errorf("unlock ledger: %w", uerr)
	}
	return err
}
