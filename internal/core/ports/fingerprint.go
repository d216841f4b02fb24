package ports

import "go.trai.ch/texmk/internal/core/domain"

// Fingerprinter computes content fingerprints of files on disk.
//
//go:generate mockgen -source=fingerprint.go -destination=mocks/mock_fingerprint.go -package=mocks
type Fingerprinter interface {
	// Fingerprint digests the file at path. A missing file yields a
	// fingerprint with Exists false and no error; any other read failure is
	// returned as an error.
	Fingerprint(path string) (domain.Fingerprint, error)
}
