package controller

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const (
	barEmpty = "░"
	barFull  = "█"
	barPart  = "▒"

	deletedMark = "*"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// SimpleUI implements UI using cobra Command's output writers.
type SimpleUI struct {
	cmd    *cobra.Command
	styled bool
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, styled bool) *SimpleUI {
	return &SimpleUI{cmd: cmd, styled: styled}
}

// Success prints a [+] line.
func (s *SimpleUI) Success(ctx context.Context, msg string) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s %s\n", s.render(successStyle, "[+]"), msg)
}

// Status prints a [*] line.
func (s *SimpleUI) Status(ctx context.Context, msg string) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s %s\n", s.render(statusStyle, "[*]"), msg)
}

// Error prints a [-] line to the error writer.
func (s *SimpleUI) Error(_ context.Context, err error) {
	if err == nil {
		return
	}

	_, _ = fmt.Fprintf(s.cmd.ErrOrStderr(), "%s %v\n", s.render(errorStyle, "[-]"), err)
}

// Print writes text as is, adding a trailing newline when missing.
func (s *SimpleUI) Print(ctx context.Context, text string) {
	if ctx.Err() != nil {
		return
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	s.printf("%s", text)
}

// DisplayFiles prints the file table.
func (s *SimpleUI) DisplayFiles(ctx context.Context, rows []FileRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"ID", "Kind", "Parent", "Cmd", "Size", "Patches", "Comment", "Path"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, row := range rows {
		record := row.Record
		id := strconv.FormatUint(uint64(record.ID), 10)

		if row.Loaded {
			id = ">" + id
		}

		if !row.Present {
			id = deletedMark + id
		}

		kind := string(record.Kind)
		if record.Failed {
			kind += " (failed)"
		}

		table.Append([]string{
			id,
			kind,
			optionalID(uint64(record.ParentID)),
			optionalID(uint64(record.CommandID)),
			strconv.FormatInt(record.Size, 10),
			record.Patches.String(),
			record.Comment,
			string(record.Path),
		})
	}

	table.SetFooter([]string{"Total Files", strconv.Itoa(len(rows)), "", "", "", "", "", ""})
	table.Render()

	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayCommands prints the command table.
func (s *SimpleUI) DisplayCommands(ctx context.Context, rows []CommandRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"ID", "Loaded", "Outputs", "Work Range", "Command"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, row := range rows {
		table.Append([]string{
			strconv.FormatUint(uint64(row.Record.ID), 10),
			optionalID(uint64(row.Record.LoadedFileID)),
			strconv.Itoa(row.Outputs),
			row.WorkRange.String(),
			row.Record.CommandLine,
		})
	}

	table.Render()

	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayBars prints one coverage bar per file.
func (s *SimpleUI) DisplayBars(ctx context.Context, lines []BarLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idWidth := 1
	for _, line := range lines {
		idWidth = max(idWidth, len(strconv.FormatUint(uint64(line.ID), 10)))
	}

	for _, line := range lines {
		mark := " "
		if line.Deleted {
			mark = s.render(deletedStyle, deletedMark)
		}

		s.printf("\n%s%0*d %s ", mark, idWidth, line.ID, RenderBar(line.Cells))
	}

	s.printf("\n")

	return nil
}

// RenderBar maps coverage percentages to bar cells: untouched slices are
// full, partly replaced ones shaded, fully replaced ones empty.
func RenderBar(cells []int) string {
	var b strings.Builder

	for _, percent := range cells {
		switch {
		case percent >= 99:
			b.WriteString(barEmpty)
		case percent > 0:
			b.WriteString(barPart)
		default:
			b.WriteString(barFull)
		}
	}

	return b.String()
}

// DisplayDiff prints a unified diff, coloring changed lines when styled.
func (s *SimpleUI) DisplayDiff(ctx context.Context, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if diff == "" {
		s.printf("no differences\n")
		return nil
	}

	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			line = s.render(addedStyle, strings.TrimSuffix(line, "\n")) + "\n"
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			line = s.render(removedStyle, strings.TrimSuffix(line, "\n")) + "\n"
		}

		s.printf("%s", line)
	}

	return nil
}

// DisplayVars prints session variables sorted by name.
func (s *SimpleUI) DisplayVars(ctx context.Context, vars map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		s.printf("%s = %s\n", name, vars[name])
	}

	return nil
}

func (s *SimpleUI) render(style lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}

	return style.Render(text)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func optionalID(id uint64) string {
	if id == 0 {
		return "-"
	}

	return strconv.FormatUint(id, 10)
}
