package domain

import (
	"context"
	"fmt"

	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

const (
	// DefaultDivideParts is the part count used by div without -n.
	DefaultDivideParts = 10
	// DefaultHalfDepth is the recursion depth used by half without -n.
	DefaultHalfDepth = 2
	// MaxHalfDepth bounds half, which derives 2^(depth+1)-2 files.
	MaxHalfDepth = 10
)

// FillArgs lists the ranges to overwrite in a single derived file.
type FillArgs struct {
	Ranges []string
}

// Fill derives one file with every listed range replaced. Without ranges it
// derives an unmodified copy.
func (w *workflow) Fill(ctx context.Context, args FillArgs) error {
	buf, err := w.loaded()
	if err != nil {
		return err
	}

	var list ranges.List
	if len(args.Ranges) > 0 {
		list, err = w.resolve(ctx, buf, args.Ranges)
		if err != nil {
			return err
		}
	}

	derived := buf.Clone()
	if err := replaceAll(derived, list); err != nil {
		return err
	}

	_, err = w.lineage.Derive(ctx, derived, "FILL")

	return err
}

// DivideArgs splits the listed ranges into Parts pieces.
type DivideArgs struct {
	Ranges   []string
	Parts    int
	Inverted bool
}

// Divide treats the listed ranges as one contiguous space, partitions it and
// derives one file per part. Normal mode replaces the part; inverted mode
// replaces everything except the part.
func (w *workflow) Divide(ctx context.Context, args DivideArgs) error {
	buf, err := w.loaded()
	if err != nil {
		return err
	}

	if args.Parts == 0 {
		args.Parts = DefaultDivideParts
	}

	list, err := w.resolve(ctx, buf, args.Ranges)
	if err != nil {
		return err
	}

	mapper := ranges.NewMapper(list)

	virtual, err := ranges.Partition(0, mapper.TotalSize(), args.Parts)
	if err != nil {
		return err
	}

	parts := make([]ranges.List, 0, len(virtual))
	for _, v := range virtual {
		physical, err := mapper.ToPhysicalRange(v)
		if err != nil {
			return err
		}

		parts = append(parts, physical)
	}

	comment := "DIV"
	if args.Inverted {
		comment = "DIV_I"
	}

	for _, part := range parts {
		replace := part
		if args.Inverted {
			replace = ranges.SubtractList(mapper.Physical(), part)
		}

		derived := buf.Clone()
		if err := replaceAll(derived, replace); err != nil {
			return err
		}

		if _, err := w.lineage.Derive(ctx, derived, comment); err != nil {
			return err
		}
	}

	return nil
}

// HalfArgs configures recursive halving.
type HalfArgs struct {
	Ranges []string
	Depth  int
}

// Half replaces the left and the right half of the listed space in two
// derived files, then recurses into the untouched half of each child until
// Depth levels were produced.
func (w *workflow) Half(ctx context.Context, args HalfArgs) error {
	buf, err := w.loaded()
	if err != nil {
		return err
	}

	if args.Depth == 0 {
		args.Depth = DefaultHalfDepth
	}

	if args.Depth < 0 || args.Depth > MaxHalfDepth {
		return fmt.Errorf("%w: half depth must be within 1..%d", ranges.ErrValidation, MaxHalfDepth)
	}

	list, err := w.resolve(ctx, buf, args.Ranges)
	if err != nil {
		return err
	}

	h := halver{w: w, mapper: ranges.NewMapper(list), depth: args.Depth}

	return h.split(ctx, buf, 0, h.mapper.TotalSize(), "")
}

type halver struct {
	w      *workflow
	mapper *ranges.Mapper
	depth  int
}

func (h halver) split(ctx context.Context, data *Buffer, offset, size int64, prefix string) error {
	if len(prefix) == h.depth {
		return nil
	}

	sizeRight := size / 2
	sizeLeft := size - sizeRight
	offsetRight := offset + sizeLeft

	if sizeLeft > 0 {
		if err := h.derive(ctx, data, offset, sizeLeft, offsetRight, sizeRight, prefix+"l"); err != nil {
			return err
		}
	}

	if sizeRight > 0 {
		if err := h.derive(ctx, data, offsetRight, sizeRight, offset, sizeLeft, prefix+"r"); err != nil {
			return err
		}
	}

	return nil
}

// derive replaces the virtual region [offset, offset+size), records the
// child and continues with the remaining region.
func (h halver) derive(ctx context.Context, data *Buffer, offset, size, restOffset, restSize int64, name string) error {
	physical, err := h.mapper.ToPhysicalRange(ranges.Range{Offset: offset, Size: size})
	if err != nil {
		return err
	}

	child := data.Clone()
	if err := replaceAll(child, physical); err != nil {
		return err
	}

	if _, err := h.w.lineage.Derive(ctx, child, "half_"+name); err != nil {
		return err
	}

	return h.split(ctx, child, restOffset, restSize, name)
}

// RestoreArgs lists the ranges copied back from a stored file.
type RestoreArgs struct {
	// Source zero selects the parent of the working file.
	Source m.FileID
	Ranges []string
}

// Restore derives one file from the working file with every listed range
// copied back from Source, undoing earlier replacements there.
func (w *workflow) Restore(ctx context.Context, args RestoreArgs) error {
	buf, err := w.loaded()
	if err != nil {
		return err
	}

	source := args.Source
	if source == 0 {
		working, fileErr := w.lineage.File(w.lineage.LoadedID())
		if fileErr != nil {
			return fileErr
		}

		if working.ParentID == 0 {
			return fmt.Errorf("%w: file #%d has no parent, give a source id", ranges.ErrValidation, working.ID)
		}

		source = working.ParentID
	}

	data, err := w.lineage.ReadStored(ctx, source)
	if err != nil {
		return err
	}

	list, err := w.resolve(ctx, buf, args.Ranges)
	if err != nil {
		return err
	}

	from := NewBuffer(data)
	derived := buf.Clone()

	for _, r := range list {
		if err := derived.ReplaceFrom(from, r.Offset, r.Size); err != nil {
			return fmt.Errorf("restore %s from #%d: %w", r, source, err)
		}
	}

	_, err = w.lineage.Derive(ctx, derived, fmt.Sprintf("RESTORE_%d", source))

	return err
}

func replaceAll(buf *Buffer, list ranges.List) error {
	for _, r := range list {
		if err := buf.ReplaceRange(r); err != nil {
			return err
		}
	}

	return nil
}
