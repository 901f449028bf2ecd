package ranges

import (
	"fmt"
	"slices"
)

// Overlaps reports whether either range contains an endpoint of the other.
// Ranges sharing only a border count as overlapping here; use Intersects to
// exclude them.
func Overlaps(a, b Range) bool {
	return a.Contains(b.Offset) || a.Contains(b.End()) ||
		b.Contains(a.Offset) || b.Contains(a.End())
}

// Adjacent reports whether the ranges touch at a border.
func Adjacent(a, b Range) bool {
	return a.End() == b.Offset || b.End() == a.Offset
}

// Intersects reports whether the ranges share at least one byte.
func Intersects(a, b Range) bool {
	if Adjacent(a, b) {
		return false
	}

	return Overlaps(a, b)
}

// Bounding returns the smallest range covering both a and b, gap included.
func Bounding(a, b Range) Range {
	return bounds(min(a.Offset, b.Offset), max(a.End(), b.End()))
}

// Intersect returns the bytes shared by a and b. ok is false when the ranges
// are disjoint or only adjacent.
func Intersect(a, b Range) (Range, bool) {
	if !Intersects(a, b) {
		return Range{}, false
	}

	return bounds(max(a.Offset, b.Offset), min(a.End(), b.End())), true
}

// Subtract computes a \ b. The result holds zero, one or two fragments.
func Subtract(a, b Range) List {
	switch {
	case a == b:
		return nil
	case tailOverlaps(a, b):
		return List{bounds(a.Offset, b.Offset)}
	case tailOverlaps(b, a):
		return List{bounds(b.End(), a.End())}
	case strictlyInside(a, b):
		return List{bounds(a.Offset, b.Offset), bounds(b.End(), a.End())}
	case strictlyInside(b, a):
		return nil
	case a.End() < b.Offset, b.End() < a.Offset:
		return List{a}
	case Adjacent(a, b):
		return List{a}
	case a.Offset == b.Offset && b.End() > a.End():
		return nil
	case a.Offset == b.Offset && a.End() > b.End():
		return List{bounds(b.End(), a.End())}
	case a.End() == b.End() && a.Offset < b.Offset:
		return List{bounds(a.Offset, b.Offset)}
	case a.End() == b.End() && b.Offset < a.Offset:
		return nil
	}

	return nil
}

// tailOverlaps reports whether b starts inside a and runs past a's end, with
// no shared border.
func tailOverlaps(a, b Range) bool {
	return a.Contains(b.Offset) && !a.Contains(b.End()) &&
		b.End() != a.End() && b.Offset != a.Offset
}

// strictlyInside reports whether b lies inside a with b starting after a.
func strictlyInside(a, b Range) bool {
	return a.Contains(b.Offset) && a.Contains(b.End()) && b.Offset > a.Offset
}

// Normalize sorts by offset and drops exact duplicates. The input is not modified.
func Normalize(list List) List {
	out := list.Clone()
	slices.SortFunc(out, func(x, y Range) int {
		if x.Offset != y.Offset {
			return cmpInt64(x.Offset, y.Offset)
		}

		return cmpInt64(x.Size, y.Size)
	})

	return slices.Compact(out)
}

// Merge returns the minimal sorted cover of list, joining ranges that overlap
// or touch. The input is not modified.
func Merge(list List) List {
	var out List

	for _, item := range Normalize(list) {
		last := len(out) - 1
		if last >= 0 && Overlaps(out[last], item) {
			out[last] = Bounding(out[last], item)
			continue
		}

		out = append(out, item)
	}

	return out
}

// SubtractList removes every range of subtrahends from base and returns the
// merged remainder.
func SubtractList(base, subtrahends List) List {
	current := base.Clone()

	for _, sub := range subtrahends {
		next := make(List, 0, len(current))
		for _, r := range current {
			next = append(next, Subtract(r, sub)...)
		}

		current = next
	}

	return Merge(current)
}

// Partition splits [offset, offset+size) into n contiguous parts whose sizes
// differ by at most one, the first size%n parts taking the extra byte. Fewer
// than n parts are returned only when size < n.
func Partition(offset, size int64, n int) (List, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: part count %d <= 0", ErrValidation, n)
	}

	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d <= 0", ErrValidation, size)
	}

	part := size / int64(n)
	tail := size % int64(n)

	out := make(List, 0, n)
	next := offset

	for i := range int64(n) {
		partSize := part
		if i < tail {
			partSize++
		}

		if partSize == 0 {
			break
		}

		out = append(out, Range{Offset: next, Size: partSize})
		next += partSize
	}

	return out, nil
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}
