package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"signfinder.dev/pkg/signfinder/internal/adapter"
	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

const (
	backupDirName = "backups"
	outputDirName = "output"

	// OutVar is the session variable bound to the latest output directory.
	OutVar = "out"

	// DefaultMaxInputSize caps the size of files accepted by LoadRoot.
	DefaultMaxInputSize = 100 * 1024 * 1024
)

// Shell is the interactive shell the store serves.
type Shell interface {
	// Counter increases once per accepted command line.
	Counter() uint64
	// CommandLine returns the text of the command being executed.
	CommandLine() string
	// SetVar binds a session variable.
	SetVar(name, value string)
}

// Notifier receives human readable status messages.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Status(ctx context.Context, msg string)
	Error(ctx context.Context, err error)
}

// LineageConfig configures a Lineage store.
type LineageConfig struct {
	// Root holds the backups/ and output/ trees.
	Root m.Path
	// KeepOutput retains output artifacts at teardown.
	KeepOutput bool
	// MaxInputSize caps LoadRoot unless forced. Zero selects DefaultMaxInputSize.
	MaxInputSize int64
}

// Lineage owns the file and command tables and the on-disk artifacts that
// back them.
type Lineage struct {
	fsAdapter adapter.ArtifactFSAdapter
	shell     Shell
	notifier  Notifier
	cfg       LineageConfig

	files    []m.FileRecord
	commands []m.CommandRecord

	loadedID  m.FileID
	commandID m.CommandID
	lastTick  uint64
	ticked    bool
}

// NewLineage constructs an empty store.
func NewLineage(fsAdapter adapter.ArtifactFSAdapter, shell Shell, notifier Notifier, cfg LineageConfig) *Lineage {
	if cfg.MaxInputSize <= 0 {
		cfg.MaxInputSize = DefaultMaxInputSize
	}

	return &Lineage{
		fsAdapter: fsAdapter,
		shell:     shell,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// LoadRoot reads an operator supplied file, records it as an input and
// snapshots its bytes into the backup tree.
func (l *Lineage) LoadRoot(ctx context.Context, path string, force bool) (m.FileRecord, []byte, error) {
	abs, err := l.fsAdapter.AbsPath(ctx, path)
	if err != nil {
		return m.FileRecord{}, nil, fmt.Errorf("%w: resolve %q: %w", ranges.ErrValidation, path, err)
	}

	if err := l.validateInput(ctx, abs, force); err != nil {
		return m.FileRecord{}, nil, err
	}

	data, err := l.fsAdapter.ReadFile(ctx, abs)
	if err != nil {
		slog.Error("Failed to read input file", "path", abs, "error", err)
		return m.FileRecord{}, nil, fmt.Errorf("%w: read %s: %w", ErrResource, abs, err)
	}

	id := m.FileID(len(l.files) + 1)
	record := m.FileRecord{
		ID:     id,
		Kind:   m.KindInput,
		Size:   int64(len(data)),
		Path:   abs,
		Backup: l.backupPath(ctx, uint64(id)),
	}
	l.files = append(l.files, record)

	if err := l.fsAdapter.WriteFile(ctx, record.Backup, data, 0o600); err != nil {
		slog.Error("Failed to write backup", "id", id, "path", record.Backup, "error", err)
		l.files[id-1].Failed = true

		return m.FileRecord{}, nil, fmt.Errorf("%w: backup #%d: %w", ErrResource, id, err)
	}

	l.loadedID = id
	slog.Info("Loaded input file", "id", id, "path", abs, "size", record.Size)

	return record, data, nil
}

func (l *Lineage) validateInput(ctx context.Context, path m.Path, force bool) error {
	info, err := l.fsAdapter.FileInfo(ctx, path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return fmt.Errorf("%w: file not found: %s", ranges.ErrValidation, path)
	}

	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrResource, path, err)
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: file is empty: %s", ranges.ErrValidation, path)
	}

	if info.Size() > l.cfg.MaxInputSize && !force {
		return fmt.Errorf("%w: file is too big (%d > %d), raise input.max_size or use -f",
			ranges.ErrValidation, info.Size(), l.cfg.MaxInputSize)
	}

	return nil
}

// LoadByID reopens a stored artifact from its backup and makes it the
// working file.
func (l *Lineage) LoadByID(ctx context.Context, id m.FileID) (m.FileRecord, []byte, error) {
	record, err := l.Stored(id)
	if err != nil {
		return m.FileRecord{}, nil, err
	}

	data, err := l.readBackup(ctx, record)
	if err != nil {
		return m.FileRecord{}, nil, err
	}

	l.loadedID = id
	slog.Info("Loaded stored file", "id", id, "kind", record.Kind, "size", len(data))

	return record, data, nil
}

// ReadStored returns the backup bytes of id without changing the working file.
func (l *Lineage) ReadStored(ctx context.Context, id m.FileID) ([]byte, error) {
	record, err := l.Stored(id)
	if err != nil {
		return nil, err
	}

	return l.readBackup(ctx, record)
}

func (l *Lineage) readBackup(ctx context.Context, record m.FileRecord) ([]byte, error) {
	data, err := l.fsAdapter.ReadFile(ctx, record.Backup)
	if err != nil {
		slog.Error("Failed to read backup", "id", record.ID, "path", record.Backup, "error", err)
		return nil, fmt.Errorf("%w: backup #%d: %w", ErrResource, record.ID, err)
	}

	return data, nil
}

// Derive records buf as a new output of the current command and writes its
// bytes to the backup and output trees.
func (l *Lineage) Derive(ctx context.Context, buf *Buffer, comment string) (m.FileID, error) {
	cmd := l.currentCommand()

	id := m.FileID(len(l.files) + 1)
	outDir := l.outputDir(ctx, cmd.ID)
	record := m.FileRecord{
		ID:        id,
		Kind:      m.KindOutput,
		Size:      buf.Len(),
		Path:      l.fsAdapter.JoinPath(ctx, string(outDir), m.BinName(uint64(id))),
		Backup:    l.backupPath(ctx, uint64(id)),
		ParentID:  cmd.LoadedFileID,
		CommandID: cmd.ID,
		Patches:   buf.Journal(),
		Comment:   comment,
	}
	l.files = append(l.files, record)

	data := buf.Bytes()

	var group errgroup.Group

	group.Go(func() error {
		if err := l.fsAdapter.WriteFile(ctx, record.Backup, data, 0o600); err != nil {
			slog.Error("Failed to write backup", "id", id, "path", record.Backup, "error", err)
			return fmt.Errorf("%w: backup #%d: %w", ErrResource, id, err)
		}

		return nil
	})

	group.Go(func() error {
		if err := l.fsAdapter.WriteFile(ctx, record.Path, data, 0o600); err != nil {
			slog.Error("Failed to write output", "id", id, "path", record.Path, "error", err)
			return fmt.Errorf("%w: output #%d: %w", ErrResource, id, err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		// Keep the record so teardown still removes whatever was written.
		l.files[id-1].Failed = true

		return 0, err
	}

	l.shell.SetVar(OutVar, string(outDir))
	l.notifier.Success(ctx, record.Name())
	slog.Debug("Derived file", "id", id, "command", cmd.ID, "parent", cmd.LoadedFileID, "patches", record.Patches.String())

	return id, nil
}

// currentCommand returns the record for the running shell tick, creating it
// on the first derive of the tick.
func (l *Lineage) currentCommand() m.CommandRecord {
	tick := l.shell.Counter()
	if l.ticked && tick == l.lastTick {
		return l.commands[l.commandID-1]
	}

	l.commandID = m.CommandID(len(l.commands) + 1)
	l.commands = append(l.commands, m.CommandRecord{
		ID:           l.commandID,
		CommandLine:  l.shell.CommandLine(),
		LoadedFileID: l.loadedID,
	})
	l.lastTick = tick
	l.ticked = true

	return l.commands[l.commandID-1]
}

// WorkRange returns the union of the patches of every output of cmdID, or
// nil when the command touched nothing.
func (l *Lineage) WorkRange(cmdID m.CommandID) ranges.List {
	var all ranges.List

	for _, file := range l.files {
		if file.CommandID == cmdID && file.IsOutput() && !file.Failed {
			all = append(all, file.Patches...)
		}
	}

	return ranges.Merge(all)
}

// Patches returns the replacements recorded for a file.
func (l *Lineage) Patches(id m.FileID) (ranges.List, error) {
	record, err := l.Stored(id)
	if err != nil {
		return nil, err
	}

	return record.Patches.Clone(), nil
}

// InversePatches returns the bytes the producing command touched in sibling
// outputs but not in this file.
func (l *Lineage) InversePatches(id m.FileID) (ranges.List, error) {
	record, err := l.Stored(id)
	if err != nil {
		return nil, err
	}

	work := l.WorkRange(record.CommandID)
	if work == nil {
		return ranges.List{}, nil
	}

	return ranges.SubtractList(work, record.Patches), nil
}

// File returns the record for id.
func (l *Lineage) File(id m.FileID) (m.FileRecord, error) {
	if id == 0 || int(id) > len(l.files) {
		return m.FileRecord{}, fmt.Errorf("%w #%d", ErrUnknownFile, id)
	}

	record := l.files[id-1]
	record.Patches = record.Patches.Clone()

	return record, nil
}

// Stored returns the record for id unless its writes failed.
func (l *Lineage) Stored(id m.FileID) (m.FileRecord, error) {
	record, err := l.File(id)
	if err != nil {
		return m.FileRecord{}, err
	}

	if record.Failed {
		return m.FileRecord{}, fmt.Errorf("%w #%d", ErrFailedFile, id)
	}

	return record, nil
}

// Command returns the record for id.
func (l *Lineage) Command(id m.CommandID) (m.CommandRecord, error) {
	if id == 0 || int(id) > len(l.commands) {
		return m.CommandRecord{}, fmt.Errorf("%w #%d", ErrUnknownCommand, id)
	}

	return l.commands[id-1], nil
}

// Files returns every file record in id order.
func (l *Lineage) Files() []m.FileRecord {
	out := make([]m.FileRecord, 0, len(l.files))
	for _, file := range l.files {
		file.Patches = file.Patches.Clone()
		out = append(out, file)
	}

	return out
}

// Commands returns every command record in id order.
func (l *Lineage) Commands() []m.CommandRecord {
	return slices.Clone(l.commands)
}

// FilesByCommand returns the stored outputs of cmdID in id order.
func (l *Lineage) FilesByCommand(cmdID m.CommandID) []m.FileRecord {
	var out []m.FileRecord

	for _, file := range l.Files() {
		if file.IsOutput() && file.CommandID == cmdID && !file.Failed {
			out = append(out, file)
		}
	}

	return out
}

// LoadedID returns the working file id, zero when nothing is loaded.
func (l *Lineage) LoadedID() m.FileID {
	return l.loadedID
}

// LastFileID returns the newest file id, zero when there is none.
func (l *Lineage) LastFileID() m.FileID {
	return m.FileID(len(l.files))
}

// LastCommandID returns the newest command id, zero when there is none.
func (l *Lineage) LastCommandID() m.CommandID {
	return m.CommandID(len(l.commands))
}

// IsArtifactPresent reports whether the bytes a record points at still exist.
func (l *Lineage) IsArtifactPresent(ctx context.Context, id m.FileID) bool {
	record, err := l.File(id)
	if err != nil {
		return false
	}

	_, err = l.fsAdapter.FileInfo(ctx, record.Path)

	return err == nil
}

// Teardown removes every backup and, unless output retention is enabled,
// every output artifact followed by the output directories left empty.
// Records stay queryable afterwards.
func (l *Lineage) Teardown(ctx context.Context) error {
	var errs []error

	for _, file := range l.files {
		if err := l.fsAdapter.Remove(ctx, file.Backup); err != nil {
			slog.Error("Failed to remove backup", "id", file.ID, "path", file.Backup, "error", err)
			errs = append(errs, fmt.Errorf("%w: remove backup #%d: %w", ErrResource, file.ID, err))
		}
	}

	l.removeEmptyDir(ctx, l.fsAdapter.JoinPath(ctx, string(l.cfg.Root), backupDirName), &errs)

	if !l.cfg.KeepOutput {
		var dirs []m.Path

		for _, file := range l.files {
			if !file.IsOutput() {
				continue
			}

			dirs = append(dirs, l.outputDir(ctx, file.CommandID))

			if err := l.fsAdapter.Remove(ctx, file.Path); err != nil {
				slog.Error("Failed to remove output", "id", file.ID, "path", file.Path, "error", err)
				errs = append(errs, fmt.Errorf("%w: remove output #%d: %w", ErrResource, file.ID, err))
			}
		}

		for _, dir := range newestFirst(dirs) {
			l.removeEmptyDir(ctx, dir, &errs)
		}

		l.removeEmptyDir(ctx, l.fsAdapter.JoinPath(ctx, string(l.cfg.Root), outputDirName), &errs)
	}

	slog.Info("Lineage teardown finished", "files", len(l.files), "keepOutput", l.cfg.KeepOutput, "errors", len(errs))

	return errors.Join(errs...)
}

func (l *Lineage) removeEmptyDir(ctx context.Context, dir m.Path, errs *[]error) {
	if _, err := l.fsAdapter.RemoveEmptyDir(ctx, dir); err != nil {
		slog.Error("Failed to remove directory", "path", dir, "error", err)
		*errs = append(*errs, fmt.Errorf("%w: remove dir %s: %w", ErrResource, dir, err))
	}
}

// newestFirst reverses dirs and drops repeats.
func newestFirst(dirs []m.Path) []m.Path {
	out := make([]m.Path, 0, len(dirs))

	for i := len(dirs) - 1; i >= 0; i-- {
		if !slices.Contains(out, dirs[i]) {
			out = append(out, dirs[i])
		}
	}

	return out
}

func (l *Lineage) backupPath(ctx context.Context, id uint64) m.Path {
	return l.fsAdapter.JoinPath(ctx, string(l.cfg.Root), backupDirName, m.BinName(id))
}

func (l *Lineage) outputDir(ctx context.Context, cmdID m.CommandID) m.Path {
	return l.fsAdapter.JoinPath(ctx, string(l.cfg.Root), outputDirName, strconv.FormatUint(uint64(cmdID), 10))
}
