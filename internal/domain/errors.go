package domain

import (
	"errors"
	"fmt"

	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

var (
	// ErrResource wraps filesystem failures while writing or removing artifacts.
	ErrResource = errors.New("resource error")

	// ErrNotLoaded is returned by operations that need a working file.
	ErrNotLoaded = fmt.Errorf("%w: no file loaded", ranges.ErrValidation)

	// ErrUnknownFile reports a file id that was never allocated.
	ErrUnknownFile = fmt.Errorf("%w: unknown file id", ranges.ErrValidation)

	// ErrFailedFile reports a file id whose artifacts were never fully written.
	ErrFailedFile = fmt.Errorf("%w: file failed to store", ranges.ErrValidation)

	// ErrUnknownCommand reports a command id that was never allocated.
	ErrUnknownCommand = fmt.Errorf("%w: unknown command id", ranges.ErrValidation)
)
