package status_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/texmk/internal/adapters/status"
	"go.trai.ch/texmk/internal/core/domain"
)

func newDoc(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument(filepath.Join(t.TempDir(), "thesis.tex"), domain.FormatPDF)
	require.NoError(t, err)
	return doc
}

func readRecord(t *testing.T, doc *domain.Document) map[string]any {
	t.Helper()
	data, err := os.ReadFile(doc.ControlFile(".texmk.json"))
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	return rec
}

func TestReport_Success(t *testing.T) {
	doc := newDoc(t)
	outcome := &domain.Outcome{
		Status:     domain.StatusDone,
		Passes:     2,
		AuxRuns:    map[domain.ToolKind]int{domain.ToolBibliography: 1},
		OutputPath: doc.OutputPath(),
	}

	require.NoError(t, status.NewReporter().Report(doc, outcome))

	rec := readRecord(t, doc)
	assert.Equal(t, "done", rec["status"])
	assert.Equal(t, float64(2), rec["passes"])
	assert.Equal(t, doc.SourcePath, rec["source"])
	assert.Equal(t, doc.OutputPath(), rec["output"])
	auxRuns, ok := rec["auxRuns"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), auxRuns["bibliography"])
}

func TestReport_FailureCarriesDiagnosticNotOutput(t *testing.T) {
	doc := newDoc(t)
	outcome := &domain.Outcome{
		Status:     domain.StatusFatal,
		Passes:     1,
		Diagnostic: "! Undefined control sequence.\nl.42 \\badmacro\n",
	}

	require.NoError(t, status.NewReporter().Report(doc, outcome))

	rec := readRecord(t, doc)
	assert.Equal(t, "fatal", rec["status"])
	assert.Contains(t, rec["diagnostic"], "Undefined control sequence")
	_, hasOutput := rec["output"]
	assert.False(t, hasOutput)
}

func TestReport_ReplacesPreviousRecord(t *testing.T) {
	doc := newDoc(t)
	r := status.NewReporter()

	require.NoError(t, r.Report(doc, &domain.Outcome{Status: domain.StatusFatal, Passes: 1, Diagnostic: "boom"}))
	require.NoError(t, r.Report(doc, &domain.Outcome{Status: domain.StatusDone, Passes: 1}))

	rec := readRecord(t, doc)
	assert.Equal(t, "done", rec["status"])
	_, hasDiagnostic := rec["diagnostic"]
	assert.False(t, hasDiagnostic)
}
