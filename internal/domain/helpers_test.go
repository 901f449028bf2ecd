package domain

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"signfinder.dev/pkg/signfinder/internal/adapter"
	"signfinder.dev/pkg/signfinder/internal/controller"
	m "signfinder.dev/pkg/signfinder/internal/model"
)

// fakeShell stands in for the interactive shell: tick advances the command
// counter the way a new input line does.
type fakeShell struct {
	counter uint64
	line    string
	vars    map[string]string
}

func newFakeShell() *fakeShell {
	return &fakeShell{vars: make(map[string]string)}
}

func (s *fakeShell) tick(line string) {
	s.counter++
	s.line = line
}

func (s *fakeShell) Counter() uint64           { return s.counter }
func (s *fakeShell) CommandLine() string       { return s.line }
func (s *fakeShell) SetVar(name, value string) { s.vars[name] = value }

// recordingUI keeps everything the session reported.
type recordingUI struct {
	mu       sync.Mutex
	success  []string
	status   []string
	errors   []error
	printed  []string
	files    []controller.FileRow
	commands []controller.CommandRow
	bars     []controller.BarLine
	diff     string
}

var _ controller.UI = (*recordingUI)(nil)

func (u *recordingUI) Success(_ context.Context, msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.success = append(u.success, msg)
}

func (u *recordingUI) Status(_ context.Context, msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = append(u.status, msg)
}

func (u *recordingUI) Error(_ context.Context, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errors = append(u.errors, err)
}

func (u *recordingUI) Print(_ context.Context, text string) {
	u.printed = append(u.printed, text)
}

func (u *recordingUI) DisplayFiles(_ context.Context, rows []controller.FileRow) error {
	u.files = rows
	return nil
}

func (u *recordingUI) DisplayCommands(_ context.Context, rows []controller.CommandRow) error {
	u.commands = rows
	return nil
}

func (u *recordingUI) DisplayBars(_ context.Context, lines []controller.BarLine) error {
	u.bars = lines
	return nil
}

func (u *recordingUI) DisplayDiff(_ context.Context, diff string) error {
	u.diff = diff
	return nil
}

func (u *recordingUI) DisplayVars(_ context.Context, _ map[string]string) error {
	return nil
}

// fakeRunner records the tool invocations it receives.
type fakeRunner struct {
	workDir string
	name    string
	args    []string
	output  string
	err     error
}

func (r *fakeRunner) Run(_ context.Context, workDir, name string, args ...string) (string, error) {
	r.workDir = workDir
	r.name = name
	r.args = args

	return r.output, r.err
}

// failingFS fails writes below failPrefix.
type failingFS struct {
	adapter.ArtifactFSAdapter
	failPrefix string
}

func (f failingFS) WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error {
	if rel, err := filepath.Rel(f.failPrefix, string(path)); err == nil && filepath.IsLocal(rel) {
		return os.ErrPermission
	}

	return f.ArtifactFSAdapter.WriteFile(ctx, path, content, perm)
}

func writeInput(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.bin")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	return path
}

func newTestLineage(t *testing.T, keepOutput bool) (*Lineage, *fakeShell, *recordingUI, string) {
	t.Helper()

	root := t.TempDir()
	shell := newFakeShell()
	ui := &recordingUI{}
	lineage := NewLineage(adapter.NewLocalArtifactFSAdapter(), shell, ui, LineageConfig{
		Root:         m.Path(root),
		KeepOutput:   keepOutput,
		MaxInputSize: DefaultMaxInputSize,
	})

	return lineage, shell, ui, root
}

type testSession struct {
	workflow Workflow
	shell    *fakeShell
	ui       *recordingUI
	runner   *fakeRunner
	root     string
}

// exec advances the shell tick and runs fn as that command.
func (s *testSession) exec(line string, fn func(Workflow) error) error {
	s.shell.tick(line)
	return fn(s.workflow)
}

func newTestSession(t *testing.T, content []byte, opts Options) *testSession {
	t.Helper()

	root := t.TempDir()
	opts.Root = m.Path(root)

	if opts.MaxInputSize == 0 {
		opts.MaxInputSize = DefaultMaxInputSize
	}

	s := &testSession{
		shell:  newFakeShell(),
		ui:     &recordingUI{},
		runner: &fakeRunner{},
		root:   root,
	}
	s.workflow = NewWorkflow(adapter.NewLocalArtifactFSAdapter(), s.runner, s.ui, s.shell, opts)

	if content != nil {
		input := writeInput(t, content)
		require.NoError(t, s.exec("load "+input, func(w Workflow) error {
			return w.Load(t.Context(), LoadArgs{Target: input})
		}))
	}

	return s
}
