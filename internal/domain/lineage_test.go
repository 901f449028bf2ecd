package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signfinder.dev/pkg/signfinder/internal/adapter"
	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

func deriveFilled(t *testing.T, l *Lineage, parent []byte, list ...ranges.Range) m.FileID {
	t.Helper()

	buf := NewBuffer(parent)
	for _, r := range list {
		require.NoError(t, buf.ReplaceRange(r))
	}

	id, err := l.Derive(t.Context(), buf, "FILL")
	require.NoError(t, err)

	return id
}

func TestLineage_LoadRoot(t *testing.T) {
	lineage, _, _, root := newTestLineage(t, false)
	input := writeInput(t, []byte("0123456789"))

	record, data, err := lineage.LoadRoot(t.Context(), input, false)
	require.NoError(t, err)

	assert.Equal(t, m.FileID(1), record.ID)
	assert.Equal(t, m.KindInput, record.Kind)
	assert.Equal(t, int64(10), record.Size)
	assert.Equal(t, m.Path(input), record.Path)
	assert.Equal(t, m.Path(filepath.Join(root, "backups", "1.bin")), record.Backup)
	assert.Equal(t, []byte("0123456789"), data)
	assert.Equal(t, m.FileID(1), lineage.LoadedID())

	backup, err := os.ReadFile(string(record.Backup))
	require.NoError(t, err)
	assert.Equal(t, data, backup)
}

func TestLineage_LoadRootValidation(t *testing.T) {
	empty := writeInput(t, nil)
	big := writeInput(t, []byte("0123456789"))

	tests := []struct {
		name  string
		path  string
		force bool
	}{
		{"missing", filepath.Join(t.TempDir(), "missing.bin"), false},
		{"directory", t.TempDir(), false},
		{"empty", empty, false},
		{"empty even when forced", empty, true},
		{"too big", big, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lineage, _, _, _ := newTestLineage(t, false)
			lineage.cfg.MaxInputSize = 4

			_, _, err := lineage.LoadRoot(t.Context(), tt.path, tt.force)
			require.ErrorIs(t, err, ranges.ErrValidation)
			assert.Empty(t, lineage.Files(), "failed loads allocate no id")
			assert.Zero(t, lineage.LoadedID())
		})
	}
}

func TestLineage_LoadRootForceSkipsSizeLimit(t *testing.T) {
	lineage, _, _, _ := newTestLineage(t, false)
	lineage.cfg.MaxInputSize = 4

	_, data, err := lineage.LoadRoot(t.Context(), writeInput(t, []byte("0123456789")), true)
	require.NoError(t, err)
	assert.Len(t, data, 10)
}

func TestLineage_DeriveGroupsOutputsByTick(t *testing.T) {
	lineage, shell, ui, root := newTestLineage(t, false)
	parent := []byte("0123456789")

	_, _, err := lineage.LoadRoot(t.Context(), writeInput(t, parent), false)
	require.NoError(t, err)

	shell.tick("div -n 2 0+6")
	first := deriveFilled(t, lineage, parent, ranges.Range{Offset: 0, Size: 3})
	second := deriveFilled(t, lineage, parent, ranges.Range{Offset: 3, Size: 3})

	shell.tick("fill 9+1")
	third := deriveFilled(t, lineage, parent, ranges.Range{Offset: 9, Size: 1})

	assert.Equal(t, []m.FileID{2, 3, 4}, []m.FileID{first, second, third})

	one, err := lineage.File(first)
	require.NoError(t, err)
	two, err := lineage.File(second)
	require.NoError(t, err)
	three, err := lineage.File(third)
	require.NoError(t, err)

	assert.Equal(t, m.CommandID(1), one.CommandID)
	assert.Equal(t, m.CommandID(1), two.CommandID)
	assert.Equal(t, m.CommandID(2), three.CommandID)
	assert.Equal(t, m.FileID(1), one.ParentID)
	assert.Equal(t, m.KindOutput, one.Kind)
	assert.Equal(t, "FILL", one.Comment)
	assert.Equal(t, m.Path(filepath.Join(root, "output", "1", "2.bin")), one.Path)

	commands := lineage.Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, "div -n 2 0+6", commands[0].CommandLine)
	assert.Equal(t, m.FileID(1), commands[0].LoadedFileID)
	assert.Len(t, lineage.FilesByCommand(1), 2)

	data, err := os.ReadFile(string(one.Path))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00\x00\x003456789"), data)

	backup, err := os.ReadFile(string(one.Backup))
	require.NoError(t, err)
	assert.Equal(t, data, backup)

	assert.Equal(t, filepath.Join(root, "output", "2"), shell.vars[OutVar])
	assert.Contains(t, ui.success, "2.bin")
}

func TestLineage_WorkRangeAndInverse(t *testing.T) {
	lineage, shell, _, _ := newTestLineage(t, false)
	parent := []byte("0123456789")

	_, _, err := lineage.LoadRoot(t.Context(), writeInput(t, parent), false)
	require.NoError(t, err)

	shell.tick("div")
	first := deriveFilled(t, lineage, parent, ranges.Range{Offset: 0, Size: 3})
	second := deriveFilled(t, lineage, parent, ranges.Range{Offset: 3, Size: 3})

	assert.Equal(t, ranges.List{{Offset: 0, Size: 6}}, lineage.WorkRange(1))
	assert.Nil(t, lineage.WorkRange(2))

	inverse, err := lineage.InversePatches(first)
	require.NoError(t, err)
	assert.Equal(t, ranges.List{{Offset: 3, Size: 3}}, inverse)

	inverse, err = lineage.InversePatches(second)
	require.NoError(t, err)
	assert.Equal(t, ranges.List{{Offset: 0, Size: 3}}, inverse)

	patches, err := lineage.Patches(first)
	require.NoError(t, err)
	assert.Equal(t, ranges.List{{Offset: 0, Size: 3}}, patches)

	inverse, err = lineage.InversePatches(1)
	require.NoError(t, err)
	assert.Empty(t, inverse, "inputs have no work range")

	_, err = lineage.Patches(99)
	require.ErrorIs(t, err, ErrUnknownFile)
	_, err = lineage.InversePatches(0)
	require.ErrorIs(t, err, ErrUnknownFile)
	_, err = lineage.Command(5)
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestLineage_LoadByID(t *testing.T) {
	lineage, shell, _, _ := newTestLineage(t, false)
	parent := []byte("0123456789")

	_, _, err := lineage.LoadRoot(t.Context(), writeInput(t, parent), false)
	require.NoError(t, err)

	shell.tick("fill 0+2")
	child := deriveFilled(t, lineage, parent, ranges.Range{Offset: 0, Size: 2})

	record, data, err := lineage.LoadByID(t.Context(), child)
	require.NoError(t, err)
	assert.Equal(t, child, record.ID)
	assert.Equal(t, []byte("\x00\x0023456789"), data)
	assert.Equal(t, child, lineage.LoadedID())

	shell.tick("fill 9+1")
	grandchild := deriveFilled(t, lineage, data, ranges.Range{Offset: 9, Size: 1})

	record, err = lineage.File(grandchild)
	require.NoError(t, err)
	assert.Equal(t, child, record.ParentID)

	_, _, err = lineage.LoadByID(t.Context(), 42)
	require.ErrorIs(t, err, ErrUnknownFile)
	assert.Equal(t, child, lineage.LoadedID(), "failed loads keep the working file")
}

func TestLineage_DeriveFailsOnBackupError(t *testing.T) {
	root := t.TempDir()
	shell := newFakeShell()
	fs := failingFS{
		ArtifactFSAdapter: adapter.NewLocalArtifactFSAdapter(),
		failPrefix:        filepath.Join(root, "backups", "2.bin"),
	}
	lineage := NewLineage(fs, shell, &recordingUI{}, LineageConfig{Root: m.Path(root), MaxInputSize: DefaultMaxInputSize})

	_, _, err := lineage.LoadRoot(t.Context(), writeInput(t, []byte("abc")), false)
	require.NoError(t, err)

	shell.tick("fill")
	_, err = lineage.Derive(t.Context(), NewBuffer([]byte("abc")), "FILL")
	require.ErrorIs(t, err, ErrResource)
}

func TestLineage_FailedDeriveLeavesLineageUntouched(t *testing.T) {
	root := t.TempDir()
	shell := newFakeShell()
	fs := failingFS{
		ArtifactFSAdapter: adapter.NewLocalArtifactFSAdapter(),
		failPrefix:        filepath.Join(root, "output", "1", "3.bin"),
	}
	lineage := NewLineage(fs, shell, &recordingUI{}, LineageConfig{Root: m.Path(root), MaxInputSize: DefaultMaxInputSize})
	parent := []byte("0123456789")

	_, _, err := lineage.LoadRoot(t.Context(), writeInput(t, parent), false)
	require.NoError(t, err)

	shell.tick("div -n 2 0+6")
	assert.Equal(t, m.FileID(2), deriveFilled(t, lineage, parent, ranges.Range{Offset: 0, Size: 3}))

	failed := NewBuffer(parent)
	require.NoError(t, failed.ReplaceRange(ranges.Range{Offset: 6, Size: 3}))
	_, err = lineage.Derive(t.Context(), failed, "DIV")
	require.ErrorIs(t, err, ErrResource)

	assert.Equal(t, ranges.List{{Offset: 0, Size: 3}}, lineage.WorkRange(1))
	assert.Len(t, lineage.FilesByCommand(1), 1)

	inverse, err := lineage.InversePatches(2)
	require.NoError(t, err)
	assert.Empty(t, inverse)

	_, err = lineage.Patches(3)
	require.ErrorIs(t, err, ErrFailedFile)
	_, err = lineage.InversePatches(3)
	require.ErrorIs(t, err, ErrFailedFile)

	_, _, err = lineage.LoadByID(t.Context(), 3)
	require.ErrorIs(t, err, ErrFailedFile)
	assert.Equal(t, m.FileID(1), lineage.LoadedID())

	files := lineage.Files()
	require.Len(t, files, 3)
	assert.True(t, files[2].Failed)
	assert.False(t, files[1].Failed)

	// The id stays allocated.
	assert.Equal(t, m.FileID(4), deriveFilled(t, lineage, parent, ranges.Range{Offset: 3, Size: 1}))

	// The backup written before the output failed is still cleaned up.
	require.NoError(t, lineage.Teardown(t.Context()))
	assert.NoDirExists(t, filepath.Join(root, "backups"))
	assert.NoDirExists(t, filepath.Join(root, "output"))
}

func TestLineage_TeardownRemovesArtifacts(t *testing.T) {
	lineage, shell, _, root := newTestLineage(t, false)
	parent := []byte("0123456789")
	input := writeInput(t, parent)

	_, _, err := lineage.LoadRoot(t.Context(), input, false)
	require.NoError(t, err)

	shell.tick("fill 0+1")
	deriveFilled(t, lineage, parent, ranges.Range{Offset: 0, Size: 1})

	shell.tick("fill 1+1")
	deriveFilled(t, lineage, parent, ranges.Range{Offset: 1, Size: 1})

	// A file the session did not write keeps its directory alive.
	foreign := filepath.Join(root, "output", "1", "scanner.log")
	require.NoError(t, os.WriteFile(foreign, []byte("report"), 0o600))

	require.NoError(t, lineage.Teardown(t.Context()))

	assert.NoFileExists(t, filepath.Join(root, "output", "1", "2.bin"))
	assert.NoDirExists(t, filepath.Join(root, "output", "2"))
	assert.NoDirExists(t, filepath.Join(root, "backups"))
	assert.FileExists(t, foreign)
	assert.FileExists(t, input, "inputs are never removed")

	assert.Len(t, lineage.Files(), 3, "records stay queryable")
	assert.False(t, lineage.IsArtifactPresent(t.Context(), 2))
}

func TestLineage_TeardownKeepsOutputs(t *testing.T) {
	lineage, shell, _, root := newTestLineage(t, true)
	parent := []byte("0123456789")

	_, _, err := lineage.LoadRoot(t.Context(), writeInput(t, parent), false)
	require.NoError(t, err)

	shell.tick("fill 0+1")
	id := deriveFilled(t, lineage, parent, ranges.Range{Offset: 0, Size: 1})

	require.NoError(t, lineage.Teardown(t.Context()))

	assert.FileExists(t, filepath.Join(root, "output", "1", "2.bin"))
	assert.NoDirExists(t, filepath.Join(root, "backups"))
	assert.True(t, lineage.IsArtifactPresent(t.Context(), id))
}

func TestLineage_TeardownWithoutFiles(t *testing.T) {
	lineage, _, _, root := newTestLineage(t, false)

	require.NoError(t, lineage.Teardown(t.Context()))
	assert.DirExists(t, root)
}
