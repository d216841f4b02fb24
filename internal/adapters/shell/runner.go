// Package shell implements the tool runner on top of os/exec.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ToolRunner = (*Runner)(nil)

// Runner implements ports.ToolRunner using os/exec.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a new Runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run spawns one process and waits for it to exit. args[0] is the binary name
// or path, the rest are its arguments.
//
// The process is deliberately started without exec.CommandContext: killing a
// typesetting tool mid-pass can leave auxiliary files half-written, so a pass
// that has started always runs to completion. The orchestrator checks ctx
// between passes.
func (r *Runner) Run(_ context.Context, kind domain.ToolKind, args []string, dir string) (*domain.PassResult, error) {
	if len(args) == 0 {
		return nil, zerr.With(domain.ErrToolLaunchFailed, "tool", kind.String())
	}

	name := args[0]
	r.logger.Info("running " + name)

	path, err := exec.LookPath(name)
	if err != nil {
		return nil, zerr.With(domain.ErrToolNotFound, "tool", name)
	}

	// A single buffer receives both streams through one pipe, preserving the
	// order the process produced them in.
	var buf bytes.Buffer
	cmd := exec.Command(path, args[1:]...) //nolint:gosec // user provided command
	cmd.Args[0] = name
	cmd.Dir = dir
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrToolLaunchFailed, err), "tool", name)
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, zerr.With(errors.Join(domain.ErrToolLaunchFailed, err), "tool", name)
		}
	}

	return &domain.PassResult{
		Tool:     kind,
		ExitCode: exitCode,
		Output:   buf.String(),
		Duration: time.Since(start),
	}, nil
}
