package idgen

import "sync/atomic"

// Sequence issues strictly increasing uint64 identifiers and is safe for
// concurrent use. The zero value is ready to use and issues 1 first, so 0
// can act as an absent-identifier marker.
type Sequence struct {
	last uint64
}

// Next returns the next identifier in the sequence.
func (s *Sequence) Next() uint64 {
	return atomic.AddUint64(&s.last, 1)
}

// Last returns the most recently issued identifier, or 0 when none was
// issued yet.
func (s *Sequence) Last() uint64 {
	return atomic.LoadUint64(&s.last)
}
