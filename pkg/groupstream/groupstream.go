// Package groupstream turns an ordered record stream into a stream of
// per-key groups. Sources promise rows sorted ascending by group key; the
// scanner makes that promise checkable by failing with ErrOutOfOrder the
// moment a key sorts at or below a group it already finished.
package groupstream

import (
	"errors"
	"fmt"
	"io"
)

// ErrOutOfOrder reports a source that broke its ordering precondition.
var ErrOutOfOrder = errors.New("records out of order")

// Next pulls one record from the source, returning io.EOF after the last.
type Next[T any] func() (T, error)

// KeyFunc extracts a record's group key.
type KeyFunc[T any] func(T) string

// Group is one run of records sharing a key. Rows is freshly allocated per
// group and belongs to the caller.
type Group[T any] struct {
	Key  string
	Rows []T
}

// Scanner yields successive groups from an ordered record stream.
type Scanner[T any] struct {
	next    Next[T]
	key     KeyFunc[T]
	pending T
	primed  bool
	done    bool
}

// NewScanner returns a scanner over next, grouping by key.
func NewScanner[T any](next Next[T], key KeyFunc[T]) *Scanner[T] {
	return &Scanner[T]{next: next, key: key}
}

// Next returns the next group. It returns io.EOF after the final group and
// an error wrapping ErrOutOfOrder if the source yields a key at or below
// one it already closed. Source errors are returned as-is.
func (s *Scanner[T]) Next() (Group[T], error) {
	if s.done {
		return Group[T]{}, io.EOF
	}
	if !s.primed {
		rec, err := s.next()
		if err != nil {
			if err == io.EOF {
				s.done = true
			}
			return Group[T]{}, err
		}
		s.pending = rec
		s.primed = true
	}

	// Each group's first record sorts above the previous group's key, so
	// every ordering violation shows up as a key below the current group.
	g := Group[T]{Key: s.key(s.pending)}
	g.Rows = append(g.Rows, s.pending)
	s.primed = false

	for {
		rec, err := s.next()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			return Group[T]{}, err
		}
		k := s.key(rec)
		if k != g.Key {
			if k < g.Key {
				return Group[T]{}, fmt.Errorf("group %q follows %q: %w", k, g.Key, ErrOutOfOrder)
			}
			s.pending = rec
			s.primed = true
			break
		}
		g.Rows = append(g.Rows, rec)
	}

	return g, nil
}

// Each runs fn for every group in the stream, stopping at the first error.
func Each[T any](next Next[T], key KeyFunc[T], fn func(Group[T]) error) error {
	s := NewScanner(next, key)
	for {
		g, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
	}
}
