package domain

// Phase is the orchestrator's position in the per-document state machine.
type Phase uint8

const (
	// PhaseInit is the state before the first compiler pass.
	PhaseInit Phase = iota
	// PhaseCompiling means a compiler pass is running.
	PhaseCompiling
	// PhaseAnalyzing means the last pass's output is being inspected.
	PhaseAnalyzing
	// PhaseRunningBibliography means the bibliography resolver is running.
	PhaseRunningBibliography
	// PhaseRunningIndex means the index generator is running.
	PhaseRunningIndex
	// PhaseDone is the terminal success state.
	PhaseDone
	// PhaseFailed is the terminal failure state.
	PhaseFailed
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseCompiling:
		return "compiling"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseRunningBibliography:
		return "running-bibliography"
	case PhaseRunningIndex:
		return "running-index"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuildState is the per-document mutable record held across the fixpoint
// loop. It is created at build start, mutated after every pass and discarded
// once summarized into an Outcome.
type BuildState struct {
	// Phase is the current state machine position.
	Phase Phase
	// Passes counts compiler passes. Auxiliary tool runs do not count
	// against it.
	Passes int
	// AuxRuns counts runs per auxiliary tool, each independently capped.
	AuxRuns map[ToolKind]int
	// LastSignals is the signal set observed in the most recent pass.
	LastSignals SignalSet
}

// NewBuildState returns the initial state of a build.
func NewBuildState() *BuildState {
	return &BuildState{
		Phase:   PhaseInit,
		AuxRuns: make(map[ToolKind]int),
	}
}

// Status is the terminal outcome classification of a build.
type Status string

const (
	// StatusDone means the build reached a fixpoint.
	StatusDone Status = "done"
	// StatusFatal means the build stopped on an unrecoverable tool error.
	StatusFatal Status = "fatal"
	// StatusCeilingExceeded means the fixpoint loop did not converge within
	// the pass ceiling. Usually a document defect or an unrecognized rerun
	// marker.
	StatusCeilingExceeded Status = "ceiling-exceeded"
)

// Outcome summarizes a finished build for reporting and for the watcher's
// dependency refresh.
type Outcome struct {
	// Status classifies the terminal state.
	Status Status
	// Passes is the number of compiler passes performed.
	Passes int
	// AuxRuns is the number of runs per auxiliary tool.
	AuxRuns map[ToolKind]int
	// OutputPath is the rendered document path. Only meaningful on success.
	OutputPath string
	// Diagnostic carries the last captured tool output verbatim when the
	// build failed, for user diagnosis.
	Diagnostic string
	// Dependencies is the dependency set discovered during the build.
	Dependencies []string
}
