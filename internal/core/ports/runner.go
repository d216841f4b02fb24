// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/texmk/internal/core/domain"
)

// ToolRunner invokes one external processing tool and captures its output.
//
//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type ToolRunner interface {
	// Run spawns exactly one process for the given tool, captures its
	// combined standard output and error streams in order, and waits for
	// termination. It does not return until the process has fully exited.
	//
	// A non-zero exit status is reported through the PassResult, not as an
	// error: recoverable compiler warnings routinely exit non-zero.
	// Run returns domain.ErrToolNotFound when the binary cannot be located
	// and domain.ErrToolLaunchFailed on OS-level spawn failures.
	//
	// Cancelling ctx never kills an in-flight process; a pass that has
	// started is always allowed to finish so intermediate files are never
	// left half-written. Callers check ctx between passes instead.
	Run(ctx context.Context, kind domain.ToolKind, args []string, dir string) (*domain.PassResult, error)
}
