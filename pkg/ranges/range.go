// Package ranges implements half-open byte interval arithmetic used to track
// which parts of a file were touched by an experiment.
package ranges

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation reports malformed or inconsistent range input.
	ErrValidation = errors.New("invalid range")
	// ErrBounds reports an address outside of the addressed extent.
	ErrBounds = errors.New("out of bounds")
)

// Range is the half-open interval [Offset, Offset+Size). Size is always positive
// for values built with New or FromBounds.
type Range struct {
	Offset int64
	Size   int64
}

// New builds a Range from an offset and a size.
func New(offset, size int64) (Range, error) {
	if offset < 0 {
		return Range{}, fmt.Errorf("%w: negative offset %d", ErrValidation, offset)
	}

	if size <= 0 {
		return Range{}, fmt.Errorf("%w: size %d <= 0", ErrValidation, size)
	}

	return Range{Offset: offset, Size: size}, nil
}

// FromBounds builds a Range from its inclusive start and exclusive end.
func FromBounds(offset, end int64) (Range, error) {
	if end <= offset {
		return Range{}, fmt.Errorf("%w: end %d <= offset %d", ErrValidation, end, offset)
	}

	return New(offset, end-offset)
}

// bounds is used internally where end > offset is already guaranteed.
func bounds(offset, end int64) Range {
	return Range{Offset: offset, Size: end - offset}
}

// End returns the exclusive end offset.
func (r Range) End() int64 {
	return r.Offset + r.Size
}

// Contains reports whether point lies inside r.
func (r Range) Contains(point int64) bool {
	return r.Offset <= point && point < r.End()
}

// String renders r as OFFSET+SIZE.
func (r Range) String() string {
	return fmt.Sprintf("%d+%d", r.Offset, r.Size)
}

// Span renders r as OFFSET-END.
func (r Range) Span() string {
	return fmt.Sprintf("%d-%d", r.Offset, r.End())
}

// List is an ordered sequence of ranges. Order is insertion order until the
// list is passed through Merge.
type List []Range

// String renders the list as space separated OFFSET+SIZE tokens.
func (l List) String() string {
	parts := make([]string, 0, len(l))
	for _, r := range l {
		parts = append(parts, r.String())
	}

	return strings.Join(parts, " ")
}

// TotalSize sums the sizes of all ranges, counting overlaps twice.
func (l List) TotalSize() int64 {
	var total int64
	for _, r := range l {
		total += r.Size
	}

	return total
}

// Clone returns an independent copy of l.
func (l List) Clone() List {
	if l == nil {
		return nil
	}

	out := make(List, len(l))
	copy(out, l)

	return out
}
