package uow

import (
	"context"
	"fmt"

	"github.com/safar/go-bookstore/internal/repository"
)

type Kind int

const (
	Insert Kind = iota + 1
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ApplyFunc writes one change through exec. version is the row version seen
// when the entity was loaded, or 0 if it was never loaded in this session.
type ApplyFunc[E any] func(ctx context.Context, exec E, version int) (int64, error)

type change[E any] struct {
	kind  Kind
	key   string
	apply ApplyFunc[E]
	// replaces is the pending delete an insert of the same key follows.
	replaces *change[E]
}

// Session records queued writes and the row versions observed by reads.
// Changes are applied by Flush and only forgotten by Accept or Reset, so a
// failed Flush can be retried against a fresh transaction.
type Session[E any] struct {
	changes  []*change[E]
	index    map[string]*change[E]
	versions map[string]int
	resets   []func()
}

func NewSession[E any]() *Session[E] {
	return &Session[E]{
		index:    make(map[string]*change[E]),
		versions: make(map[string]int),
	}
}

func (s *Session[E]) Observe(key string, version int) {
	if _, ok := s.versions[key]; !ok {
		s.versions[key] = version
	}
}

func (s *Session[E]) Version(key string) (int, bool) {
	v, ok := s.versions[key]
	return v, ok
}

func (s *Session[E]) Insert(key string, fn ApplyFunc[E]) {
	s.record(Insert, key, fn)
}

func (s *Session[E]) Update(key string, fn ApplyFunc[E]) {
	s.record(Update, key, fn)
}

func (s *Session[E]) Delete(key string, fn ApplyFunc[E]) {
	s.record(Delete, key, fn)
}

// record folds a change into any pending change for the same key. Apply
// functions read entity state when they run, so one write per key suffices.
func (s *Session[E]) record(kind Kind, key string, fn ApplyFunc[E]) {
	prev, ok := s.index[key]
	if !ok {
		c := &change[E]{kind: kind, key: key, apply: fn}
		s.changes = append(s.changes, c)
		s.index[key] = c
		return
	}

	switch {
	case prev.kind == Insert && kind == Update:
	case prev.kind == Insert && kind == Delete:
		s.drop(prev)
	case prev.kind == Delete && kind == Insert:
		c := &change[E]{kind: kind, key: key, apply: fn, replaces: prev}
		s.changes = append(s.changes, c)
		s.index[key] = c
	case prev.kind == Update && kind == Update:
	default:
		prev.kind = kind
		prev.apply = fn
	}
}

// drop removes c from the queue. A dropped re-insert leaves the delete it
// followed pending.
func (s *Session[E]) drop(c *change[E]) {
	for i, queued := range s.changes {
		if queued == c {
			s.changes = append(s.changes[:i], s.changes[i+1:]...)
			break
		}
	}
	if c.replaces != nil {
		s.index[c.key] = c.replaces
		return
	}
	delete(s.index, c.key)
}

func (s *Session[E]) Pending() int { return len(s.changes) }

// Flush applies every queued change in order and returns the rows affected.
// It does not clear the queue.
func (s *Session[E]) Flush(ctx context.Context, exec E) (int, error) {
	total := 0
	for _, c := range s.changes {
		version, tracked := s.versions[c.key]
		rows, err := c.apply(ctx, exec, version)
		if err != nil {
			return total, err
		}
		if rows == 0 && (c.kind == Update || (c.kind == Delete && tracked)) {
			return total, fmt.Errorf("%s %s: %w", c.kind, c.key, repository.ErrConcurrencyConflict)
		}
		total += int(rows)
	}
	return total, nil
}

// Accept marks the flushed changes as durable and advances row versions.
func (s *Session[E]) Accept() {
	for _, c := range s.changes {
		switch c.kind {
		case Insert:
			s.versions[c.key] = 1
		case Update:
			s.versions[c.key]++
		case Delete:
			delete(s.versions, c.key)
		}
	}
	s.changes = nil
	s.index = make(map[string]*change[E])
}

// Reset forgets queued changes, observed versions and every identity map
// bound to the session.
func (s *Session[E]) Reset() {
	s.changes = nil
	s.index = make(map[string]*change[E])
	s.versions = make(map[string]int)
	for _, fn := range s.resets {
		fn()
	}
}

func (s *Session[E]) onReset(fn func()) {
	s.resets = append(s.resets, fn)
}
