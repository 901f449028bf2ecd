// Package controller renders SignFinder notifications, tables and bars.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

// FileRow is one line of the file table.
type FileRow struct {
	Record  m.FileRecord
	Present bool
	Loaded  bool
}

// CommandRow is one line of the command table.
type CommandRow struct {
	Record    m.CommandRecord
	Outputs   int
	WorkRange ranges.List
}

// BarLine is the coverage bar of one derived file. Cells hold the percentage
// of each slice of the drawn region replaced in that file.
type BarLine struct {
	ID      m.FileID
	Deleted bool
	Cells   []int
}

// UI defines how the session reports to the operator.
// Implementations can use different output methods (plain or styled text).
type UI interface {
	Success(ctx context.Context, msg string)
	Status(ctx context.Context, msg string)
	Error(ctx context.Context, err error)
	Print(ctx context.Context, text string)
	DisplayFiles(ctx context.Context, rows []FileRow) error
	DisplayCommands(ctx context.Context, rows []CommandRow) error
	DisplayBars(ctx context.Context, lines []BarLine) error
	DisplayDiff(ctx context.Context, diff string) error
	DisplayVars(ctx context.Context, vars map[string]string) error
}

// NewUI returns the UI for cmd, styled when writing to a terminal.
func NewUI(cmd *cobra.Command, styled bool) UI {
	return NewSimpleUI(cmd, styled)
}

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
