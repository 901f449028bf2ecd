// Package domain implements the SignFinder session: buffers, lineage and the
// commands that derive new files from the working file.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"signfinder.dev/pkg/signfinder/internal/adapter"
	"signfinder.dev/pkg/signfinder/internal/controller"
	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

// Session variables set on load.
const (
	SizeVar = "size"
	AllVar  = "all"
	PathVar = "path"
)

// Workflow is the session object the shell drives. Every method runs to
// completion before the next command is accepted.
//
//nolint:interfacebloat // One method per shell command.
type Workflow interface {
	Load(ctx context.Context, args LoadArgs) error
	Fill(ctx context.Context, args FillArgs) error
	Divide(ctx context.Context, args DivideArgs) error
	Half(ctx context.Context, args HalfArgs) error
	Restore(ctx context.Context, args RestoreArgs) error
	Visualize(ctx context.Context, args VisualizeArgs) error
	Diff(ctx context.Context, args DiffArgs) error
	Export(ctx context.Context, args ExportArgs) error
	Run(ctx context.Context, args RunArgs) error
	ListFiles(ctx context.Context) error
	ListCommands(ctx context.Context) error
	// State returns the working file id and the newest command id.
	State() (m.FileID, m.CommandID)
	SessionID() string
	// Close tears the lineage store down. Only the first call has an effect.
	Close(ctx context.Context) error
}

// Options configures a Workflow.
type Options struct {
	Root         m.Path
	KeepOutput   bool
	MaxInputSize int64
	FillPolicy   FillPolicy
}

type workflow struct {
	fsAdapter adapter.ArtifactFSAdapter
	runner    adapter.ToolRunnerAdapter
	ui        controller.UI
	shell     Shell
	lineage   *Lineage
	resolver  *Resolver
	fill      FillPolicy
	root      m.Path
	sessionID string

	buf  *Buffer
	path m.Path

	closeOnce sync.Once
	closeErr  error
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.ArtifactFSAdapter,
	runner adapter.ToolRunnerAdapter,
	ui controller.UI,
	shell Shell,
	opts Options,
) Workflow {
	lineage := NewLineage(fsAdapter, shell, ui, LineageConfig{
		Root:         opts.Root,
		KeepOutput:   opts.KeepOutput,
		MaxInputSize: opts.MaxInputSize,
	})

	fill := opts.FillPolicy
	if fill == nil {
		fill = ZeroFill
	}

	return &workflow{
		fsAdapter: fsAdapter,
		runner:    runner,
		ui:        ui,
		shell:     shell,
		lineage:   lineage,
		resolver:  NewResolver(lineage),
		fill:      fill,
		root:      opts.Root,
		sessionID: uuid.NewString(),
	}
}

// LoadArgs selects the file to work on: a path, or the id of a stored file.
type LoadArgs struct {
	Target string
	Force  bool
}

func (w *workflow) Load(ctx context.Context, args LoadArgs) error {
	var (
		record m.FileRecord
		data   []byte
		err    error
	)

	if id, parseErr := strconv.ParseUint(args.Target, 10, 64); parseErr == nil {
		record, data, err = w.lineage.LoadByID(ctx, m.FileID(id))
	} else {
		record, data, err = w.lineage.LoadRoot(ctx, args.Target, args.Force)
	}

	if err != nil {
		return fmt.Errorf("load %s: %w", args.Target, err)
	}

	w.buf = NewBuffer(data, WithFillPolicy(w.fill))
	w.path = record.Path

	w.ui.Status(ctx, "File parsed")
	w.setVar(ctx, SizeVar, strconv.FormatInt(w.buf.Len(), 10))
	w.setVar(ctx, AllVar, fmt.Sprintf("0+%d", w.buf.Len()))
	w.setVar(ctx, PathVar, string(w.path))

	return nil
}

func (w *workflow) setVar(ctx context.Context, name, value string) {
	w.shell.SetVar(name, value)
	w.ui.Success(ctx, "$"+name)
}

func (w *workflow) loaded() (*Buffer, error) {
	if w.buf == nil {
		return nil, ErrNotLoaded
	}

	return w.buf, nil
}

// resolve turns the command arguments into a merged list, defaulting to the
// whole working file.
func (w *workflow) resolve(ctx context.Context, buf *Buffer, tokens []string) (ranges.List, error) {
	if len(tokens) == 0 {
		tokens = []string{ranges.AllToken}
	}

	list, err := w.resolver.ResolveAll(tokens, buf.Len())
	if err != nil {
		return nil, err
	}

	w.ui.Status(ctx, "list: "+list.String())

	return list, nil
}

func (w *workflow) State() (m.FileID, m.CommandID) {
	return w.lineage.LoadedID(), w.lineage.LastCommandID()
}

func (w *workflow) SessionID() string {
	return w.sessionID
}

func (w *workflow) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		w.closeErr = w.lineage.Teardown(ctx)
		if w.closeErr != nil {
			w.ui.Error(ctx, w.closeErr)
			return
		}

		slog.Info("Session closed", "session", w.sessionID)
	})

	return w.closeErr
}
