// Package model defines the lineage records kept for every loaded or derived file.
package model

import (
	"strconv"

	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

// Path represents a file system path.
type Path string

// FileID identifies a FileRecord. Zero means no file.
type FileID uint64

// CommandID identifies a CommandRecord. Zero means no command.
type CommandID uint64

// FileKind tells loaded files apart from derived ones.
type FileKind string

const (
	// KindInput is a file loaded from an operator supplied path.
	KindInput FileKind = "input"
	// KindOutput is a file derived from a buffer by a command.
	KindOutput FileKind = "output"
)

// FileRecord describes one artifact. Records are never modified after creation
// except to flag a store whose writes failed.
type FileRecord struct {
	ID   FileID   `yaml:"id"`
	Kind FileKind `yaml:"kind"`
	Size int64    `yaml:"size"`
	// Path is the absolute location of the bytes the record describes: the
	// operator's file for inputs, the output copy for derived files.
	Path   Path `yaml:"path"`
	Backup Path `yaml:"backup"`

	// Output only.
	ParentID  FileID      `yaml:"parent_id,omitempty"`
	CommandID CommandID   `yaml:"command_id,omitempty"`
	Patches   ranges.List `yaml:"-"`
	Comment   string      `yaml:"comment,omitempty"`

	// Failed marks a record whose backup or output write did not complete.
	// Its id stays allocated but the record takes no part in the lineage.
	Failed bool `yaml:"failed,omitempty"`
}

// IsOutput reports whether the record was produced by a command.
func (f FileRecord) IsOutput() bool {
	return f.Kind == KindOutput
}

// Name returns the base name of the output artifact.
func (f FileRecord) Name() string {
	return BinName(uint64(f.ID))
}

// CommandRecord describes one shell invocation that produced output files.
type CommandRecord struct {
	ID           CommandID `yaml:"id"`
	CommandLine  string    `yaml:"command_line"`
	LoadedFileID FileID    `yaml:"loaded_file_id"`
}

// BinName returns the artifact file name used for an id.
func BinName(id uint64) string {
	return strconv.FormatUint(id, 10) + ".bin"
}
