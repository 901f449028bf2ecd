package domain

import (
	"bytes"
	"fmt"

	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

// FillPolicy produces replacement bytes for [offset, offset+size). Returning
// nil requests a zero fill.
type FillPolicy func(offset, size int64) []byte

// ZeroFill is the default FillPolicy.
func ZeroFill(_, size int64) []byte {
	return make([]byte, size)
}

// PatternFill repeats pattern across the replaced region, aligned to the
// region start. An empty pattern behaves like ZeroFill.
func PatternFill(pattern []byte) FillPolicy {
	if len(pattern) == 0 {
		return ZeroFill
	}

	pattern = bytes.Clone(pattern)

	return func(_, size int64) []byte {
		out := make([]byte, size)
		for i := range out {
			out[i] = pattern[i%len(pattern)]
		}

		return out
	}
}

// BufferOption configures a Buffer.
type BufferOption func(*Buffer)

// WithFillPolicy replaces the default zero fill.
func WithFillPolicy(policy FillPolicy) BufferOption {
	return func(b *Buffer) {
		if policy != nil {
			b.fill = policy
		}
	}
}

// Buffer is a mutable copy of a file that journals the extent of every
// replacement. Previous bytes are not kept.
type Buffer struct {
	data    []byte
	journal ranges.List
	fill    FillPolicy
}

// NewBuffer copies data into a new Buffer with an empty journal.
func NewBuffer(data []byte, options ...BufferOption) *Buffer {
	b := &Buffer{
		data: bytes.Clone(data),
		fill: ZeroFill,
	}

	for _, option := range options {
		option(b)
	}

	return b
}

// Len returns the buffer length.
func (b *Buffer) Len() int64 {
	return int64(len(b.data))
}

// Bytes returns a copy of the current contents.
func (b *Buffer) Bytes() []byte {
	return bytes.Clone(b.data)
}

// Read returns a copy of [offset, offset+size).
func (b *Buffer) Read(offset, size int64) ([]byte, error) {
	if offset < 0 || size <= 0 || offset+size > b.Len() {
		return nil, fmt.Errorf("%w: read %d+%d of %d bytes", ranges.ErrBounds, offset, size, b.Len())
	}

	return bytes.Clone(b.data[offset : offset+size]), nil
}

// Replace writes payload at offset and journals the written extent.
func (b *Buffer) Replace(offset int64, payload []byte) error {
	size := int64(len(payload))
	if size == 0 {
		return fmt.Errorf("%w: empty replacement at %d", ranges.ErrBounds, offset)
	}

	if offset < 0 || offset+size > b.Len() {
		return fmt.Errorf("%w: replace %d+%d of %d bytes", ranges.ErrBounds, offset, size, b.Len())
	}

	copy(b.data[offset:], payload)
	b.journal = append(b.journal, ranges.Range{Offset: offset, Size: size})

	return nil
}

// ReplaceFilled overwrites [offset, offset+size) with bytes from the fill policy.
func (b *Buffer) ReplaceFilled(offset, size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: fill %d+%d", ranges.ErrBounds, offset, size)
	}

	payload := b.fill(offset, size)
	if payload == nil {
		payload = ZeroFill(offset, size)
	}

	if int64(len(payload)) != size {
		return fmt.Errorf("%w: fill policy returned %d bytes for %d", ranges.ErrBounds, len(payload), size)
	}

	return b.Replace(offset, payload)
}

// ReplaceRange is ReplaceFilled for a Range.
func (b *Buffer) ReplaceRange(r ranges.Range) error {
	return b.ReplaceFilled(r.Offset, r.Size)
}

// ReplaceFrom copies [offset, offset+size) from src into b, restoring bytes
// of an ancestor into a derived buffer.
func (b *Buffer) ReplaceFrom(src *Buffer, offset, size int64) error {
	payload, err := src.Read(offset, size)
	if err != nil {
		return err
	}

	return b.Replace(offset, payload)
}

// Journal returns a copy of the replacement history in call order.
func (b *Buffer) Journal() ranges.List {
	return b.journal.Clone()
}

// Clone returns an independent buffer sharing the fill policy and starting
// with a copy of the journal.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		data:    bytes.Clone(b.data),
		journal: b.journal.Clone(),
		fill:    b.fill,
	}
}

// String implements fmt.Stringer.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(%d)", b.Len())
}
