package domain

import "time"

// ToolKind identifies one of the external tools the orchestrator drives.
type ToolKind uint8

const (
	// ToolCompiler is the primary typesetting compiler (pdflatex, latex or a
	// user-provided command).
	ToolCompiler ToolKind = iota
	// ToolBibliography is the bibliography resolver (bibtex).
	ToolBibliography
	// ToolIndex is the index generator (makeindex).
	ToolIndex
)

// String returns a human-readable tool name for logs and status reports.
func (k ToolKind) String() string {
	switch k {
	case ToolCompiler:
		return "compiler"
	case ToolBibliography:
		return "bibliography"
	case ToolIndex:
		return "index"
	default:
		return "unknown"
	}
}

// PassResult is the outcome of one external tool invocation. It is immutable
// once produced; the orchestrator owns it for the duration of one decision
// step.
type PassResult struct {
	// Tool is the tool that produced this result.
	Tool ToolKind
	// ExitCode is the process exit status. Non-zero is not an error by
	// itself: typesetting compilers routinely exit non-zero on recoverable
	// warnings, so interpretation is left to the log analyzer.
	ExitCode int
	// Output is the combined standard output and error text in the order the
	// process produced it.
	Output string
	// Duration is the wall time of the invocation.
	Duration time.Duration
}
