// Package status publishes build outcomes as a machine-readable file next to
// the document, for editor and IDE integrations.
package status

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StatusReporter = (*Reporter)(nil)

// Reporter writes one JSON status file per document, replaced atomically on
// every build so readers never observe a partial write.
type Reporter struct{}

// NewReporter creates a status reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// record is the serialized status file contract. Fields are append-only.
type record struct {
	Source       string         `json:"source"`
	Status       string         `json:"status"`
	Passes       int            `json:"passes"`
	AuxRuns      map[string]int `json:"auxRuns,omitempty"`
	Output       string         `json:"output,omitempty"`
	Diagnostic   string         `json:"diagnostic,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	FinishedAt   time.Time      `json:"finishedAt"`
}

// Report writes the outcome to <jobname>.texmk.json in the document's
// working directory.
func (r *Reporter) Report(doc *domain.Document, outcome *domain.Outcome) error {
	rec := record{
		Source:       doc.SourcePath,
		Status:       string(outcome.Status),
		Passes:       outcome.Passes,
		Dependencies: outcome.Dependencies,
		Diagnostic:   outcome.Diagnostic,
		FinishedAt:   time.Now().UTC(),
	}
	if outcome.Status == domain.StatusDone {
		rec.Output = outcome.OutputPath
	}
	if len(outcome.AuxRuns) > 0 {
		rec.AuxRuns = make(map[string]int, len(outcome.AuxRuns))
		for kind, runs := range outcome.AuxRuns {
			rec.AuxRuns[kind.String()] = runs
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return zerr.With(errors.Join(domain.ErrStatusWriteFailed, err), "document", doc.JobName)
	}

	path := doc.ControlFile(".texmk.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return zerr.With(errors.Join(domain.ErrStatusWriteFailed, err), "path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return zerr.With(errors.Join(domain.ErrStatusWriteFailed, err), "path", path)
	}

	return nil
}
