// Package watch holds the shared transcript: a single-writer, many-reader
// cell whose value only grows. The writer publishes a fresh immutable
// snapshot with one atomic swap; readers load the latest snapshot without
// locking and never see intermediate states they were too slow for.
package watch

import (
	"context"
	"sync/atomic"
)

// Snapshot is one published value of the log.
type Snapshot struct {
	Text    string
	Version uint64

	changed chan struct{}
}

type cell struct {
	cur atomic.Pointer[Snapshot]
}

// Publisher is the writer end. Only one goroutine may publish.
type Publisher struct {
	c *cell
}

// Reader is a read-only view of the log. It can be shared freely.
type Reader struct {
	c *cell
}

// New returns the writer and reader ends of an empty log.
func New() (*Publisher, *Reader) {
	c := &cell{}
	c.cur.Store(&Snapshot{changed: make(chan struct{})})
	return &Publisher{c: c}, &Reader{c: c}
}

// Append publishes the current text followed by s.
func (p *Publisher) Append(s string) {
	if s == "" {
		return
	}
	old := p.c.cur.Load()
	next := &Snapshot{
		Text:    old.Text + s,
		Version: old.Version + 1,
		changed: make(chan struct{}),
	}
	p.c.cur.Store(next)
	close(old.changed)
}

// Current returns the latest text.
func (r *Reader) Current() string {
	return r.c.cur.Load().Text
}

// Snapshot returns the latest snapshot.
func (r *Reader) Snapshot() Snapshot {
	return *r.c.cur.Load()
}

// Changed returns a channel that is closed on the next publish after the
// call.
func (r *Reader) Changed() <-chan struct{} {
	return r.c.cur.Load().changed
}

// Wait blocks until a snapshot newer than version is published or ctx is
// done.
func (r *Reader) Wait(ctx context.Context, version uint64) (Snapshot, error) {
	for {
		s := r.c.cur.Load()
		if s.Version > version {
			return *s, nil
		}
		select {
		case <-s.changed:
		case <-ctx.Done():
			return *s, ctx.Err()
		}
	}
}
