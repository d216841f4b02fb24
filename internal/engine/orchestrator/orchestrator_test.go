package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/texmk/internal/adapters/fs"
	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports/mocks"
	"go.trai.ch/texmk/internal/engine/analyzer"
	"go.trai.ch/texmk/internal/engine/orchestrator"
)

const (
	cleanOutput = "Output written on thesis.pdf (3 pages, 12345 bytes).\n"
	rerunOutput = "LaTeX Warning: Label(s) may have changed. Rerun to get cross-references right.\n"
	citeOutput  = "LaTeX Warning: Citation `knuth84' on page 1 undefined on input line 7.\n"
	fatalOutput = "! Undefined control sequence.\nl.42 \\badmacro\n"
)

type fixture struct {
	doc    *domain.Document
	runner *mocks.MockToolRunner
	orch   *orchestrator.Orchestrator
	cfg    *domain.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	doc, err := domain.NewDocument(filepath.Join(t.TempDir(), "thesis.tex"), domain.FormatPDF)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(doc.SourcePath, []byte("\\documentclass{article}\n"), 0o644))

	an, err := analyzer.New(fs.NewFingerprinter(), nil)
	require.NoError(t, err)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	runner := mocks.NewMockToolRunner(ctrl)
	cfg := domain.DefaultConfig()
	return &fixture{
		doc:    doc,
		runner: runner,
		orch:   orchestrator.New(runner, an, log, cfg),
		cfg:    cfg,
	}
}

func (f *fixture) expectRun(kind domain.ToolKind, out string, exit int, sideEffect func()) *gomock.Call {
	return f.runner.EXPECT().
		Run(gomock.Any(), kind, gomock.Any(), f.doc.WorkingDir).
		DoAndReturn(func(context.Context, domain.ToolKind, []string, string) (*domain.PassResult, error) {
			if sideEffect != nil {
				sideEffect()
			}
			return &domain.PassResult{Tool: kind, ExitCode: exit, Output: out}, nil
		})
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuild_CleanDocumentSinglePass(t *testing.T) {
	f := newFixture(t)
	f.expectRun(domain.ToolCompiler, cleanOutput, 0, nil).Times(1)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, out.Status)
	assert.Equal(t, 1, out.Passes)
	assert.Empty(t, out.AuxRuns)
	assert.Equal(t, f.doc.OutputPath(), out.OutputPath)
}

func TestBuild_StopsAtPassCeiling(t *testing.T) {
	f := newFixture(t)
	f.expectRun(domain.ToolCompiler, rerunOutput, 0, nil).Times(f.cfg.MaxPasses)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.ErrorIs(t, err, domain.ErrCeilingExceeded)
	assert.Equal(t, domain.StatusCeilingExceeded, out.Status)
	assert.Equal(t, f.cfg.MaxPasses, out.Passes)
	assert.Equal(t, rerunOutput, out.Diagnostic)
}

func TestBuild_UndefinedCitationRunsBibliographyOnce(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.expectRun(domain.ToolCompiler, citeOutput, 0, nil),
		f.expectRun(domain.ToolBibliography, "", 0, nil),
		f.expectRun(domain.ToolCompiler, cleanOutput, 0, nil),
	)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, out.Status)
	assert.Equal(t, 2, out.Passes)
	assert.Equal(t, 1, out.AuxRuns[domain.ToolBibliography])
}

func TestBuild_BibliographyBeforeIndex(t *testing.T) {
	f := newFixture(t)
	idx := f.doc.ControlFile(".idx")
	ind := f.doc.ControlFile(".ind")

	gomock.InOrder(
		// First pass emits both an undefined citation and a fresh index file.
		f.expectRun(domain.ToolCompiler, citeOutput, 0, func() {
			write(t, idx, "\\indexentry{typesetting}{1}\n")
		}),
		f.expectRun(domain.ToolBibliography, "", 0, nil),
		// The .ind file is still missing, so the index generator runs next.
		f.expectRun(domain.ToolCompiler, cleanOutput, 0, nil),
		f.expectRun(domain.ToolIndex, "", 0, func() {
			write(t, ind, "\\begin{theindex}\n\\end{theindex}\n")
		}),
		f.expectRun(domain.ToolCompiler, cleanOutput, 0, nil),
	)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, out.Status)
	assert.Equal(t, 3, out.Passes)
	assert.Equal(t, 1, out.AuxRuns[domain.ToolBibliography])
	assert.Equal(t, 1, out.AuxRuns[domain.ToolIndex])
}

func TestBuild_ExternalDatabaseChangeRunsResolver(t *testing.T) {
	f := newFixture(t)
	// The first pass looks clean; the edit happened before the build, so
	// only the injected signal knows the database is newer than the .bbl.
	gomock.InOrder(
		f.expectRun(domain.ToolCompiler, cleanOutput, 0, nil),
		f.expectRun(domain.ToolBibliography, "", 0, nil),
		f.expectRun(domain.ToolCompiler, cleanOutput, 0, nil),
	)

	external := domain.SignalSet(0).Add(domain.SignalBibliographyDataChanged)
	out, err := f.orch.Build(context.Background(), f.doc, external)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, out.Status)
	assert.Equal(t, 2, out.Passes)
	assert.Equal(t, 1, out.AuxRuns[domain.ToolBibliography])
}

func TestBuild_GlossariesRegenerateIndividually(t *testing.T) {
	f := newFixture(t)
	aux := f.doc.ControlFile(".aux")

	var indexArgs [][]string
	gomock.InOrder(
		f.expectRun(domain.ToolCompiler, cleanOutput, 0, func() {
			write(t, aux, "\\@newglossary{main}{glg}{gls}{glo}\n\\@newglossary{acronym}{alg}{acr}{acn}\n")
			write(t, f.doc.ControlFile(".glo"), "\\glossaryentry{typesetting}{1}\n")
			write(t, f.doc.ControlFile(".acn"), "\\glossaryentry{TUG}{1}\n")
			write(t, f.doc.ControlFile(".ist"), "% style\n")
		}),
		f.runner.EXPECT().
			Run(gomock.Any(), domain.ToolIndex, gomock.Any(), f.doc.WorkingDir).
			DoAndReturn(func(_ context.Context, _ domain.ToolKind, args []string, _ string) (*domain.PassResult, error) {
				indexArgs = append(indexArgs, args)
				write(t, f.doc.ControlFile(".gls"), "generated\n")
				return &domain.PassResult{Tool: domain.ToolIndex}, nil
			}),
		f.runner.EXPECT().
			Run(gomock.Any(), domain.ToolIndex, gomock.Any(), f.doc.WorkingDir).
			DoAndReturn(func(_ context.Context, _ domain.ToolKind, args []string, _ string) (*domain.PassResult, error) {
				indexArgs = append(indexArgs, args)
				write(t, f.doc.ControlFile(".acr"), "generated\n")
				return &domain.PassResult{Tool: domain.ToolIndex}, nil
			}),
		f.expectRun(domain.ToolCompiler, cleanOutput, 0, nil),
	)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, out.Status)
	assert.Equal(t, 2, out.Passes)
	// Two generator invocations, one cap increment for the round.
	assert.Equal(t, 1, out.AuxRuns[domain.ToolIndex])

	require.Len(t, indexArgs, 2)
	assert.Equal(t, []string{"-s", "thesis.ist", "-t", "thesis.glg", "-o", "thesis.gls", "thesis.glo"}, indexArgs[0][2:])
	assert.Equal(t, []string{"-s", "thesis.ist", "-t", "thesis.alg", "-o", "thesis.acr", "thesis.acn"}, indexArgs[1][2:])
}

func TestBuild_FatalErrorStopsImmediately(t *testing.T) {
	f := newFixture(t)
	f.expectRun(domain.ToolCompiler, fatalOutput+rerunOutput, 1, nil).Times(1)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.ErrorIs(t, err, domain.ErrToolFatal)
	assert.Equal(t, domain.StatusFatal, out.Status)
	assert.Equal(t, 1, out.Passes)
	assert.Contains(t, out.Diagnostic, "Undefined control sequence")
}

func TestBuild_AuxiliaryRunCapIgnoresFurtherRequests(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxAuxRuns = 1
	gomock.InOrder(
		f.expectRun(domain.ToolCompiler, citeOutput, 0, nil),
		f.expectRun(domain.ToolBibliography, "", 0, nil),
		// The citation never resolves; with the resolver capped the loop
		// settles instead of oscillating.
		f.expectRun(domain.ToolCompiler, citeOutput, 0, nil),
	)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, out.Status)
	assert.Equal(t, 2, out.Passes)
	assert.Equal(t, 1, out.AuxRuns[domain.ToolBibliography])
}

func TestBuild_RunnerErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.runner.EXPECT().
		Run(gomock.Any(), domain.ToolCompiler, gomock.Any(), f.doc.WorkingDir).
		Return(nil, domain.ErrToolNotFound)

	out, err := f.orch.Build(context.Background(), f.doc, 0)
	require.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.Nil(t, out)
}

func TestBuild_CancelledContextSchedulesNoPass(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := f.orch.Build(ctx, f.doc, 0)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, out)
}

func TestBuild_CompilerArgumentsCarryJobName(t *testing.T) {
	f := newFixture(t)
	f.runner.EXPECT().
		Run(gomock.Any(), domain.ToolCompiler, gomock.Any(), f.doc.WorkingDir).
		DoAndReturn(func(_ context.Context, _ domain.ToolKind, args []string, _ string) (*domain.PassResult, error) {
			assert.Equal(t, "pdflatex", args[0])
			assert.Contains(t, args, "-interaction=nonstopmode")
			assert.Contains(t, args, "-jobname")
			assert.Equal(t, "thesis.tex", args[len(args)-1])
			return &domain.PassResult{Tool: domain.ToolCompiler, Output: cleanOutput}, nil
		})

	_, err := f.orch.Build(context.Background(), f.doc, 0)
	require.NoError(t, err)
}
