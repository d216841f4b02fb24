package domain

import "time"

// ConfigFileName is the configuration file searched for upwards from the
// document directory.
const ConfigFileName = "texmk.yaml"

// Defaults for the fixpoint loop. MaxPasses follows the conventional latexmk
// limit of four compiler runs.
const (
	DefaultMaxPasses  = 4
	DefaultMaxAuxRuns = 2
	DefaultDebounce   = 200 * time.Millisecond
)

// DefaultCompilerFlags are passed to every compiler invocation.
var DefaultCompilerFlags = []string{
	"-interaction=nonstopmode",
	"-shell-escape",
	"--synctex=1",
}

// ToolSpec describes how to invoke one external tool.
type ToolSpec struct {
	// Command is the binary name or path.
	Command string
	// Flags precede the positional arguments on every invocation.
	Flags []string
}

// MarkerRule maps an output text pattern to a signal. Config files may extend
// the built-in marker table with these.
type MarkerRule struct {
	// Pattern is an uncompiled regular expression matched per line.
	Pattern string
	// Signal is emitted when the pattern matches.
	Signal Signal
}

// Config carries all configuration for one build or watch invocation. It is
// an explicit value passed into the orchestrator and tool runner rather than
// ambient process state, so concurrently watched documents can use
// independent configurations.
type Config struct {
	// Format selects the output format.
	Format OutputFormat
	// Compiler invokes the typesetting compiler. An empty Command selects
	// pdflatex or latex based on Format.
	Compiler ToolSpec
	// Bibliography invokes the bibliography resolver.
	Bibliography ToolSpec
	// Index invokes the index generator.
	Index ToolSpec
	// MaxPasses is the compiler pass ceiling per build.
	MaxPasses int
	// MaxAuxRuns caps each auxiliary tool independently, preventing
	// oscillation between bibliography and index runs.
	MaxAuxRuns int
	// Debounce is the watch-mode coalescing window.
	Debounce time.Duration
	// ExtraMarkers extend the analyzer's built-in marker table.
	ExtraMarkers []MarkerRule
}

// DefaultConfig returns the configuration used when no texmk.yaml is found.
func DefaultConfig() *Config {
	return &Config{
		Format:       FormatPDF,
		Compiler:     ToolSpec{Flags: DefaultCompilerFlags},
		Bibliography: ToolSpec{Command: "bibtex"},
		Index:        ToolSpec{Command: "makeindex", Flags: []string{"-q"}},
		MaxPasses:    DefaultMaxPasses,
		MaxAuxRuns:   DefaultMaxAuxRuns,
		Debounce:     DefaultDebounce,
	}
}

// CompilerCommand resolves the compiler binary, falling back to the
// conventional compiler for the output format.
func (c *Config) CompilerCommand() string {
	if c.Compiler.Command != "" {
		return c.Compiler.Command
	}
	if c.Format == FormatDVI {
		return "latex"
	}
	return "pdflatex"
}
