package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/texmk/internal/adapters/fs"
)

func TestFingerprinter_MissingFile(t *testing.T) {
	fp := fs.NewFingerprinter()

	got, err := fp.Fingerprint(filepath.Join(t.TempDir(), "nope.aux"))
	require.NoError(t, err)
	assert.False(t, got.Exists)
}

func TestFingerprinter_DetectsChanges(t *testing.T) {
	fp := fs.NewFingerprinter()
	path := filepath.Join(t.TempDir(), "doc.aux")

	require.NoError(t, os.WriteFile(path, []byte("\\relax\n"), 0o644))
	before, err := fp.Fingerprint(path)
	require.NoError(t, err)
	assert.True(t, before.Exists)

	// Same content, same fingerprint.
	again, err := fp.Fingerprint(path)
	require.NoError(t, err)
	assert.True(t, before.Equal(again))

	require.NoError(t, os.WriteFile(path, []byte("\\relax\n\\citation{knuth}\n"), 0o644))
	after, err := fp.Fingerprint(path)
	require.NoError(t, err)
	assert.False(t, before.Equal(after))
}
