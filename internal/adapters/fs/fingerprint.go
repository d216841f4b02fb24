// Package fs provides content fingerprinting for files on disk.
package fs

import (
	"errors"
	"io"
	iofs "io/fs"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter computes XXHash content digests. It is the single notion of
// "did this file change" shared by the log analyzer and the watcher.
type Fingerprinter struct{}

// NewFingerprinter creates a new Fingerprinter.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// Fingerprint digests the file at path. A missing file is not an error; it
// yields a fingerprint with Exists false so appearance and disappearance both
// register as changes.
func (f *Fingerprinter) Fingerprint(path string) (domain.Fingerprint, error) {
	fh, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return domain.Fingerprint{}, nil
		}
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer fh.Close() //nolint:errcheck // Best effort close in defer

	digest := xxhash.New()
	if _, err := io.Copy(digest, fh); err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return domain.Fingerprint{Exists: true, Sum: digest.Sum64()}, nil
}
