package domain

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"signfinder.dev/pkg/signfinder/internal/controller"
	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

const (
	// DefaultBarWidth is the line width used by Visualize.
	DefaultBarWidth = 80

	exportFileName = "lineage.yaml"
)

// VisualizeArgs selects the command whose outputs are drawn.
type VisualizeArgs struct {
	// CommandID zero selects the newest command.
	CommandID m.CommandID
	// Range overrides the drawn region, OFFSET+SIZE or OFFSET-END.
	Range string
	Width int
}

// Visualize draws one bar per output of a command. Each cell covers an equal
// slice of the drawn region and shows how much of it that output replaced.
func (w *workflow) Visualize(ctx context.Context, args VisualizeArgs) error {
	cmdID := args.CommandID
	if cmdID == 0 {
		cmdID = w.lineage.LastCommandID()
	}

	cmd, err := w.lineage.Command(cmdID)
	if err != nil {
		return err
	}

	if args.CommandID == 0 && cmd.LoadedFileID != w.lineage.LoadedID() {
		return fmt.Errorf("%w: output files not found for the working file", ranges.ErrValidation)
	}

	parent, err := w.lineage.File(cmd.LoadedFileID)
	if err != nil {
		return err
	}

	files := w.lineage.FilesByCommand(cmdID)
	if len(files) == 0 {
		return fmt.Errorf("%w: command #%d produced no files", ranges.ErrValidation, cmdID)
	}

	region, err := w.visualRegion(cmdID, args.Range, parent.Size)
	if err != nil {
		return err
	}

	w.ui.Status(ctx, "region: "+region.Span())

	width := args.Width
	if width <= 0 {
		width = DefaultBarWidth
	}

	idWidth := len(strconv.FormatUint(uint64(files[len(files)-1].ID), 10))

	cells, err := ranges.Partition(region.Offset, region.Size, max(width-(idWidth+3), 1))
	if err != nil {
		return err
	}

	lines := make([]controller.BarLine, 0, len(files))
	for _, file := range files {
		lines = append(lines, controller.BarLine{
			ID:      file.ID,
			Deleted: !w.lineage.IsArtifactPresent(ctx, file.ID),
			Cells:   coverage(file.Patches, cells),
		})
	}

	return w.ui.DisplayBars(ctx, lines)
}

// visualRegion picks the drawn region: the explicit one, the span of the
// command's work range, or the whole parent file.
func (w *workflow) visualRegion(cmdID m.CommandID, text string, size int64) (ranges.Range, error) {
	if text != "" {
		return ranges.Parse(text, size)
	}

	work := w.lineage.WorkRange(cmdID)
	if len(work) == 0 {
		return ranges.New(0, size)
	}

	return ranges.Bounding(work[0], work[len(work)-1]), nil
}

// coverage returns, per cell, the percentage of the cell replaced by patches.
func coverage(patches, cells ranges.List) []int {
	out := make([]int, 0, len(cells))

	for _, cell := range cells {
		percent := 0

		for _, patch := range patches {
			shared, ok := ranges.Intersect(patch, cell)
			if ok {
				percent += int(shared.Size * 100 / cell.Size)
			}
		}

		out = append(out, percent)
	}

	return out
}

// DiffArgs selects a stored file and the file it is compared against. Base
// zero selects the parent of ID.
type DiffArgs struct {
	ID   m.FileID
	Base m.FileID
}

// Diff prints a unified diff of the hex dumps of two stored files.
func (w *workflow) Diff(ctx context.Context, args DiffArgs) error {
	file, err := w.lineage.Stored(args.ID)
	if err != nil {
		return err
	}

	baseID := args.Base
	if baseID == 0 {
		if file.ParentID == 0 {
			return fmt.Errorf("%w: file #%d has no parent, give a base id", ranges.ErrValidation, file.ID)
		}

		baseID = file.ParentID
	}

	base, err := w.lineage.Stored(baseID)
	if err != nil {
		return err
	}

	baseData, err := w.lineage.ReadStored(ctx, base.ID)
	if err != nil {
		return err
	}

	fileData, err := w.lineage.ReadStored(ctx, file.ID)
	if err != nil {
		return err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(hex.Dump(baseData)),
		B:        difflib.SplitLines(hex.Dump(fileData)),
		FromFile: "#" + strconv.FormatUint(uint64(base.ID), 10),
		ToFile:   "#" + strconv.FormatUint(uint64(file.ID), 10),
		Context:  1,
	})
	if err != nil {
		return fmt.Errorf("diff #%d #%d: %w", base.ID, file.ID, err)
	}

	return w.ui.DisplayDiff(ctx, diff)
}

// ExportArgs names the YAML file receiving the lineage tables.
type ExportArgs struct {
	Path string
}

type exportedFile struct {
	m.FileRecord `yaml:",inline"`
	Patches      []string `yaml:"patches,omitempty"`
	Present      bool     `yaml:"present"`
}

type exportDocument struct {
	Session  string            `yaml:"session"`
	Loaded   m.FileID          `yaml:"loaded_id"`
	Files    []exportedFile    `yaml:"files"`
	Commands []m.CommandRecord `yaml:"commands"`
}

// Export writes the file and command tables as YAML.
func (w *workflow) Export(ctx context.Context, args ExportArgs) error {
	target := w.fsAdapter.JoinPath(ctx, string(w.root), exportFileName)
	if args.Path != "" {
		abs, err := w.fsAdapter.AbsPath(ctx, args.Path)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ranges.ErrValidation, args.Path, err)
		}

		target = abs
	}

	doc := exportDocument{
		Session:  w.sessionID,
		Loaded:   w.lineage.LoadedID(),
		Commands: w.lineage.Commands(),
	}

	for _, file := range w.lineage.Files() {
		entry := exportedFile{FileRecord: file, Present: w.lineage.IsArtifactPresent(ctx, file.ID)}
		for _, patch := range file.Patches {
			entry.Patches = append(entry.Patches, patch.String())
		}

		doc.Files = append(doc.Files, entry)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode lineage: %w", err)
	}

	if err := w.fsAdapter.WriteFile(ctx, target, out, 0o600); err != nil {
		slog.Error("Failed to write lineage export", "path", target, "error", err)
		return fmt.Errorf("%w: export %s: %w", ErrResource, target, err)
	}

	w.ui.Success(ctx, string(target))

	return nil
}

// RunArgs names an external tool and its arguments.
type RunArgs struct {
	Tool string
	Args []string
}

// Run executes an external tool from the store root and prints its output.
// A timeout fails the command and is not retried.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	if args.Tool == "" {
		return fmt.Errorf("%w: missing tool name", ranges.ErrValidation)
	}

	output, err := w.runner.Run(ctx, string(w.root), args.Tool, args.Args...)
	if output != "" {
		w.ui.Print(ctx, output)
	}

	if err != nil {
		slog.Warn("External tool failed", "tool", args.Tool, "error", err)
		return fmt.Errorf("run %s: %w", args.Tool, err)
	}

	return nil
}

func (w *workflow) ListFiles(ctx context.Context) error {
	files := w.lineage.Files()
	rows := make([]controller.FileRow, 0, len(files))

	for _, file := range files {
		rows = append(rows, controller.FileRow{
			Record:  file,
			Present: w.lineage.IsArtifactPresent(ctx, file.ID),
			Loaded:  file.ID == w.lineage.LoadedID(),
		})
	}

	return w.ui.DisplayFiles(ctx, rows)
}

func (w *workflow) ListCommands(ctx context.Context) error {
	commands := w.lineage.Commands()
	rows := make([]controller.CommandRow, 0, len(commands))

	for _, cmd := range commands {
		rows = append(rows, controller.CommandRow{
			Record:    cmd,
			Outputs:   len(w.lineage.FilesByCommand(cmd.ID)),
			WorkRange: w.lineage.WorkRange(cmd.ID),
		})
	}

	return w.ui.DisplayCommands(ctx, rows)
}
