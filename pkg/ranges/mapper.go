package ranges

import "fmt"

// Mapper presents a set of disjoint physical ranges as one contiguous virtual
// space starting at zero.
type Mapper struct {
	physical List
	virtual  List
	size     int64
}

// NewMapper merges list and builds the virtual index over it.
func NewMapper(list List) *Mapper {
	physical := Merge(list)
	virtual := make(List, 0, len(physical))

	var next int64
	for _, r := range physical {
		virtual = append(virtual, Range{Offset: next, Size: r.Size})
		next += r.Size
	}

	return &Mapper{
		physical: physical,
		virtual:  virtual,
		size:     next,
	}
}

// TotalSize returns the size of the virtual space.
func (m *Mapper) TotalSize() int64 {
	return m.size
}

// Physical returns the merged physical ranges backing the mapper.
func (m *Mapper) Physical() List {
	return m.physical.Clone()
}

// ToPhysical translates a virtual offset. ok is false past the end.
func (m *Mapper) ToPhysical(offset int64) (int64, bool) {
	for i, virt := range m.virtual {
		if virt.Contains(offset) {
			return m.physical[i].Offset + offset - virt.Offset, true
		}
	}

	return 0, false
}

// ToPhysicalRange translates a virtual range into the physical fragments it
// covers, split at every physical border.
func (m *Mapper) ToPhysicalRange(r Range) (List, error) {
	if r.Offset < 0 || r.Size <= 0 || r.End() > m.size {
		return nil, fmt.Errorf("%w: virtual range %s exceeds size %d", ErrBounds, r, m.size)
	}

	var out List

	for i, virt := range m.virtual {
		shared, ok := Intersect(virt, r)
		if !ok {
			continue
		}

		out = append(out, Range{
			Offset: m.physical[i].Offset + shared.Offset - virt.Offset,
			Size:   shared.Size,
		})
	}

	return out, nil
}
