package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/mattn/go-shellwords"

	"signfinder.dev/pkg/signfinder/internal/controller"
	"signfinder.dev/pkg/signfinder/internal/domain"
)

const commentPrefix = "#"

var errQuit = errors.New("quit")

// shell reads command lines and dispatches them to the workflow. It is the
// domain.Shell of the session: it counts accepted lines and holds the
// session variables.
type shell struct {
	workflow    domain.Workflow
	ui          controller.UI
	out         io.Writer
	interactive bool

	counter uint64
	line    string
	vars    map[string]string
}

func newShell(ui controller.UI, out io.Writer, interactive bool) *shell {
	return &shell{
		ui:          ui,
		out:         out,
		interactive: interactive,
		vars:        make(map[string]string),
	}
}

func (s *shell) Counter() uint64 {
	return s.counter
}

func (s *shell) CommandLine() string {
	return s.line
}

func (s *shell) SetVar(name, value string) {
	s.vars["$"+name] = value
}

// Vars returns a copy of the session variables keyed by their $name.
func (s *shell) Vars() map[string]string {
	return maps.Clone(s.vars)
}

// Run executes lines from in until it is exhausted, quit is entered or ctx
// is cancelled.
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		readErr <- scanner.Err()
	}()

	for {
		s.prompt()

		select {
		case <-ctx.Done():
			slog.Info("Session interrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read commands: %w", err)
					}
				default:
				}

				return nil
			}

			if s.Exec(ctx, line) {
				return nil
			}
		}
	}
}

// Exec runs a single command line and reports whether the session should end.
// Command failures are reported and do not end the session.
func (s *shell) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, commentPrefix) {
		return false
	}

	if !s.interactive {
		// Echo script lines so the output reads like a transcript.
		_, _ = fmt.Fprintf(s.out, "%s%s\n", s.promptText(), line)
	}

	args, err := shellwords.Parse(line)
	if err != nil {
		s.ui.Error(ctx, fmt.Errorf("parse %q: %w", line, err))
		return false
	}

	s.counter++
	s.line = line

	slog.Debug("Executing command", "id", s.counter, "line", line)

	cmd := newShellCommand(s)
	cmd.SetArgs(s.expand(args))
	cmd.SetOut(s.out)
	cmd.SetErr(s.out)

	err = cmd.ExecuteContext(ctx)
	if errors.Is(err, errQuit) {
		return true
	}

	if err != nil {
		slog.Warn("Command failed", "id", s.counter, "line", line, "error", err)
		s.ui.Error(ctx, err)
	}

	return false
}

// expand substitutes session variables. A variable is replaced when it is the
// whole argument or its leading path element, as in $out/0001.
func (s *shell) expand(args []string) []string {
	expanded := make([]string, len(args))

	for i, arg := range args {
		expanded[i] = arg

		name, rest, _ := strings.Cut(arg, "/")
		if value, ok := s.vars[name]; ok {
			if rest != "" || strings.HasSuffix(arg, "/") {
				value += "/" + rest
			}

			expanded[i] = value
		}
	}

	return expanded
}

func (s *shell) prompt() {
	if !s.interactive {
		return
	}

	_, _ = fmt.Fprint(s.out, s.promptText())
}

func (s *shell) promptText() string {
	loaded, last := s.workflow.State()

	return fmt.Sprintf("sf2(%d#%d): ", loaded, last)
}
