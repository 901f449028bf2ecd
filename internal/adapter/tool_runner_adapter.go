package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultToolTimeout is the wall-clock ceiling for one external tool run.
const DefaultToolTimeout = 600 * time.Second

// ErrToolTimeout is returned when an external tool was killed for running too long.
var ErrToolTimeout = errors.New("external tool timed out")

// ToolRunnerAdapter runs external tools, typically a scanner pointed at an
// output directory.
type ToolRunnerAdapter interface {
	// Run executes name with args in workDir and returns the combined
	// stdout/stderr output.
	Run(ctx context.Context, workDir, name string, args ...string) (output string, err error)
}

// LocalToolRunnerAdapter runs tools through os/exec.
type LocalToolRunnerAdapter struct {
	timeout time.Duration
}

// NewLocalToolRunnerAdapter constructs a LocalToolRunnerAdapter. A zero
// timeout selects DefaultToolTimeout.
func NewLocalToolRunnerAdapter(timeout time.Duration) *LocalToolRunnerAdapter {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}

	return &LocalToolRunnerAdapter{timeout: timeout}
}

// Run executes the tool and kills it once the timeout expires.
func (a *LocalToolRunnerAdapter) Run(ctx context.Context, workDir, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// #nosec G204 - running operator supplied tools is the purpose of this adapter
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String() + stderr.String()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("%w after %s: %s", ErrToolTimeout, a.timeout, name)
	}

	return output, err
}
