package ports

import "go.trai.ch/texmk/internal/core/domain"

// StatusReporter publishes a build's terminal status through a stable
// machine-readable contract, so editor and IDE integrations can surface the
// result without re-parsing raw tool output.
//
//go:generate mockgen -source=reporter.go -destination=mocks/mock_reporter.go -package=mocks
type StatusReporter interface {
	// Report records the outcome of one finished build for the document.
	Report(doc *domain.Document, outcome *domain.Outcome) error
}
