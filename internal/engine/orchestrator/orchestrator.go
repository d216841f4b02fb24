// Package orchestrator implements the per-document build state machine: it
// repeatedly runs compiler passes, feeds the results to the analyzer and
// decides the next action until a fixpoint or a failure.
package orchestrator

import (
	"context"
	"fmt"

	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
	"go.trai.ch/texmk/internal/engine/analyzer"
)

// Orchestrator owns the fixpoint loop for one or more documents. It holds no
// per-document state between Build calls; everything lives in the BuildState
// created per build, so concurrent builds of different documents are
// independent.
type Orchestrator struct {
	runner   ports.ToolRunner
	analyzer *analyzer.Analyzer
	logger   ports.Logger
	cfg      *domain.Config
}

// New creates an Orchestrator with the given collaborators.
func New(runner ports.ToolRunner, an *analyzer.Analyzer, log ports.Logger, cfg *domain.Config) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		analyzer: an,
		logger:   log,
		cfg:      cfg,
	}
}

// Build drives the document to a fixpoint. It returns the outcome together
// with a sentinel error for terminal failures: domain.ErrToolFatal when the
// compiler reported an unrecoverable error, domain.ErrCeilingExceeded when
// the loop refused to run more passes. Environment failures (tool missing,
// spawn failure) and cancellation return an error without an outcome.
//
// external carries change signals observed between builds, such as a
// bibliography database edited while watching. The analyzer only sees diffs
// across a single pass, so changes that predate the build must be injected
// here; they merge into the first pass's signal set.
//
// Cancelling ctx never aborts a running pass; the orchestrator finishes the
// pass in flight and declines to schedule further ones.
func (o *Orchestrator) Build(ctx context.Context, doc *domain.Document, external domain.SignalSet) (*domain.Outcome, error) {
	st := domain.NewBuildState()

	var (
		lastPass   *domain.PassResult
		signals    domain.SignalSet
		indexRuns  []analyzer.IndexRun
		failStatus domain.Status
	)

	for {
		switch st.Phase {
		case domain.PhaseInit:
			st.Phase = domain.PhaseCompiling

		case domain.PhaseCompiling:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			before, err := o.analyzer.Snapshot(doc)
			if err != nil {
				return nil, err
			}
			pass, err := o.runner.Run(ctx, domain.ToolCompiler, o.compilerArgs(doc), doc.WorkingDir)
			if err != nil {
				return nil, err
			}
			st.Passes++
			lastPass = pass

			after, err := o.analyzer.Snapshot(doc)
			if err != nil {
				return nil, err
			}
			signals = o.analyzer.Analyze(pass, before, after)
			if st.Passes == 1 && !signals.Has(domain.SignalToolFatal) {
				signals = signals.Union(external)
			}
			st.LastSignals = signals
			indexRuns = o.analyzer.IndexRuns(doc, before, after)
			o.analyzer.DiscoverDependencies(doc, pass.Output)

			o.logger.Info(fmt.Sprintf("pass %d of %s: signals: %s", st.Passes, doc.JobName, signals))
			st.Phase = domain.PhaseAnalyzing

		case domain.PhaseAnalyzing:
			if signals.Has(domain.SignalToolError) {
				o.logger.Warn(fmt.Sprintf("compiler exited with status %d, continuing", lastPass.ExitCode))
			}
			var status domain.Status
			st.Phase, status = o.decide(st, signals)
			if st.Phase == domain.PhaseFailed {
				failStatus = status
			}

		case domain.PhaseRunningBibliography:
			if err := o.runAux(ctx, st, doc, domain.ToolBibliography, o.bibliographyArgs(doc)); err != nil {
				return nil, err
			}
			st.Phase = domain.PhaseCompiling

		case domain.PhaseRunningIndex:
			if err := o.runIndex(ctx, st, doc, indexRuns); err != nil {
				return nil, err
			}
			st.Phase = domain.PhaseCompiling

		case domain.PhaseDone:
			o.logger.Info(fmt.Sprintf("%s compiled after %d passes", doc.JobName, st.Passes))
			return o.outcome(doc, st, domain.StatusDone, ""), nil

		case domain.PhaseFailed:
			diagnostic := ""
			if lastPass != nil {
				diagnostic = lastPass.Output
			}
			out := o.outcome(doc, st, failStatus, diagnostic)
			if failStatus == domain.StatusFatal {
				return out, domain.ErrToolFatal
			}
			return out, domain.ErrCeilingExceeded
		}
	}
}

// decide maps the last pass's signal set to the next phase. Bibliography
// resolution takes precedence over index generation: bibliography changes are
// more likely to also change cross-reference numbering. Auxiliary signals
// whose tool has exhausted its independent cap are ignored rather than failed
// so the loop cannot oscillate between the two tools.
func (o *Orchestrator) decide(st *domain.BuildState, signals domain.SignalSet) (domain.Phase, domain.Status) {
	if signals.Has(domain.SignalToolFatal) {
		return domain.PhaseFailed, domain.StatusFatal
	}

	bibNeeded := signals.Has(domain.SignalCitationUndefined) || signals.Has(domain.SignalBibliographyDataChanged)
	if bibNeeded && st.AuxRuns[domain.ToolBibliography] >= o.cfg.MaxAuxRuns {
		o.logger.Warn("bibliography resolver run limit reached, leaving remaining citations unresolved")
		bibNeeded = false
	}
	idxNeeded := signals.Has(domain.SignalIndexDataChanged)
	if idxNeeded && st.AuxRuns[domain.ToolIndex] >= o.cfg.MaxAuxRuns {
		o.logger.Warn("index generator run limit reached, leaving index stale")
		idxNeeded = false
	}
	rerun := signals.Has(domain.SignalRerunRequested) || signals.Has(domain.SignalReferenceUndefined)

	if !bibNeeded && !idxNeeded && !rerun {
		return domain.PhaseDone, ""
	}
	if st.Passes >= o.cfg.MaxPasses {
		return domain.PhaseFailed, domain.StatusCeilingExceeded
	}
	if bibNeeded {
		return domain.PhaseRunningBibliography, ""
	}
	if idxNeeded {
		return domain.PhaseRunningIndex, ""
	}
	return domain.PhaseCompiling, ""
}

// runAux runs one auxiliary tool. Auxiliary runs do not count against the
// compiler pass ceiling but are tracked under their own cap. A non-zero exit
// is logged and tolerated; the follow-up compiler pass decides whether the
// result is usable.
func (o *Orchestrator) runAux(ctx context.Context, st *domain.BuildState, doc *domain.Document, kind domain.ToolKind, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pass, err := o.runner.Run(ctx, kind, args, doc.WorkingDir)
	if err != nil {
		return err
	}
	st.AuxRuns[kind]++
	if pass.ExitCode != 0 {
		o.logger.Warn(fmt.Sprintf("%s exited with status %d", kind, pass.ExitCode))
	}
	return nil
}

func (o *Orchestrator) compilerArgs(doc *domain.Document) []string {
	args := []string{o.cfg.CompilerCommand()}
	args = append(args, o.cfg.Compiler.Flags...)
	return append(args, "-jobname", doc.JobName, doc.JobName+".tex")
}

func (o *Orchestrator) bibliographyArgs(doc *domain.Document) []string {
	args := []string{o.cfg.Bibliography.Command}
	args = append(args, o.cfg.Bibliography.Flags...)
	return append(args, doc.JobName)
}

// runIndex executes one index generation round: one generator invocation per
// pending run, so a document with several glossaries regenerates each of
// them. The round counts once against the tool cap regardless of how many
// glossaries it covers.
func (o *Orchestrator) runIndex(ctx context.Context, st *domain.BuildState, doc *domain.Document, runs []analyzer.IndexRun) error {
	if len(runs) == 0 {
		runs = []analyzer.IndexRun{{Input: doc.JobName + ".idx"}}
	}
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		pass, err := o.runner.Run(ctx, domain.ToolIndex, o.indexArgs(run), doc.WorkingDir)
		if err != nil {
			return err
		}
		if pass.ExitCode != 0 {
			o.logger.Warn(fmt.Sprintf("%s exited with status %d processing %s", domain.ToolIndex, pass.ExitCode, run.Input))
		}
	}
	st.AuxRuns[domain.ToolIndex]++
	return nil
}

func (o *Orchestrator) indexArgs(run analyzer.IndexRun) []string {
	args := []string{o.cfg.Index.Command}
	args = append(args, o.cfg.Index.Flags...)
	if run.Style != "" {
		args = append(args, "-s", run.Style)
	}
	if run.Log != "" {
		args = append(args, "-t", run.Log)
	}
	if run.Output != "" {
		args = append(args, "-o", run.Output)
	}
	return append(args, run.Input)
}

func (o *Orchestrator) outcome(doc *domain.Document, st *domain.BuildState, status domain.Status, diagnostic string) *domain.Outcome {
	auxRuns := make(map[domain.ToolKind]int, len(st.AuxRuns))
	for k, v := range st.AuxRuns {
		auxRuns[k] = v
	}
	return &domain.Outcome{
		Status:       status,
		Passes:       st.Passes,
		AuxRuns:      auxRuns,
		OutputPath:   doc.OutputPath(),
		Diagnostic:   diagnostic,
		Dependencies: doc.Dependencies(),
	}
}
