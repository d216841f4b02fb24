package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Signal is a structured fact extracted from a pass's captured output or from
// control file fingerprint diffs. Signals are derived, never persisted.
type Signal uint8

const (
	// SignalRerunRequested means the compiler asked for another pass to
	// settle cross-references or the table of contents.
	SignalRerunRequested Signal = iota
	// SignalCitationUndefined means at least one citation key could not be
	// resolved, so the bibliography resolver must run.
	SignalCitationUndefined
	// SignalBibliographyDataChanged means the bibliography inputs (citation
	// set, bibliography database) changed during the pass.
	SignalBibliographyDataChanged
	// SignalIndexDataChanged means the raw index data changed during the
	// pass, so the index generator must run.
	SignalIndexDataChanged
	// SignalReferenceUndefined means at least one cross-reference is still
	// unresolved.
	SignalReferenceUndefined
	// SignalToolError means the tool exited non-zero without reporting a
	// fatal error. Recoverable; surfaced as a warning only.
	SignalToolError
	// SignalToolFatal means the compiler reported an unrecoverable error.
	// It suppresses all rerun logic.
	SignalToolFatal

	signalCount
)

var signalNames = [...]string{
	SignalRerunRequested:          "rerun-requested",
	SignalCitationUndefined:       "citation-undefined",
	SignalBibliographyDataChanged: "bibliography-data-changed",
	SignalIndexDataChanged:        "index-data-changed",
	SignalReferenceUndefined:      "reference-undefined",
	SignalToolError:               "tool-error",
	SignalToolFatal:               "tool-fatal",
}

// String returns the stable textual name of the signal, as used in config
// files and status reports.
func (s Signal) String() string {
	if int(s) < len(signalNames) {
		return signalNames[s]
	}
	return "unknown"
}

// ParseSignal resolves a textual signal name from a config file.
func ParseSignal(name string) (Signal, error) {
	for i, n := range signalNames {
		if n == name {
			return Signal(i), nil
		}
	}
	return 0, zerr.With(ErrUnknownSignal, "name", name)
}

// SignalSet is the set of signals observed in a single pass.
type SignalSet uint16

// Add returns the set with s included.
func (ss SignalSet) Add(s Signal) SignalSet {
	return ss | 1<<s
}

// Union returns the combination of both sets.
func (ss SignalSet) Union(other SignalSet) SignalSet {
	return ss | other
}

// Has reports whether s is in the set.
func (ss SignalSet) Has(s Signal) bool {
	return ss&(1<<s) != 0
}

// Empty reports whether no signal was observed.
func (ss SignalSet) Empty() bool {
	return ss == 0
}

// String renders the set as a comma-separated list of signal names.
func (ss SignalSet) String() string {
	if ss.Empty() {
		return "none"
	}
	var names []string
	for s := Signal(0); s < signalCount; s++ {
		if ss.Has(s) {
			names = append(names, s.String())
		}
	}
	return strings.Join(names, ",")
}
