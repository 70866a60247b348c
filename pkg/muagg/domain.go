// Package muagg reduces the components of one map unit to a single result
// row. It provides the generic reduction methods (weighted average,
// dominant condition with ordinal tie-break, dominant component, min/max,
// percent present) plus the interpretation-rating reducers, and the shared
// category ordinal table the tie-breaks consult.
package muagg

import (
	"sync"

	"github.com/rs/zerolog"
)

// DomainSequence maps categorical values to their ordinal sequence. A
// category the domain never defined is coined the next free sequence on
// first lookup, kept stable for the rest of the run, and reported once
// through the logger. Safe for concurrent use.
type DomainSequence struct {
	mu     sync.Mutex
	seq    map[string]int
	next   int
	logger zerolog.Logger
}

// NewDomainSequence returns a sequence table primed with ordinals. Unknown
// categories will be coined starting one past the largest primed sequence.
func NewDomainSequence(ordinals map[string]int, logger zerolog.Logger) *DomainSequence {
	seq := make(map[string]int, len(ordinals))
	next := 0
	for c, s := range ordinals {
		seq[c] = s
		if s >= next {
			next = s + 1
		}
	}
	return &DomainSequence{seq: seq, next: next, logger: logger}
}

// Lookup returns the category's sequence, coining one for categories the
// domain does not define.
func (d *DomainSequence) Lookup(category string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.seq[category]; ok {
		return s
	}
	s := d.next
	d.next++
	d.seq[category] = s
	d.logger.Warn().
		Str("category", category).
		Int("sequence", s).
		Msg("category missing from domain, coined sequence")
	return s
}

// Known reports the category's sequence without coining one.
func (d *DomainSequence) Known(category string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.seq[category]
	return s, ok
}
