// Package app implements the application layer for texmk.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/texmk/internal/adapters/watcher"
	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
	"go.trai.ch/texmk/internal/engine/analyzer"
	"go.trai.ch/texmk/internal/engine/orchestrator"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ProjectFileName is the Eclipse-style project file consulted when no source
// is given on the command line.
const ProjectFileName = ".texlipse"

// projectFileRetries covers the window in which an IDE save has created the
// project file but not yet finished writing it.
const (
	projectFileRetries    = 3
	projectFileRetryDelay = 100 * time.Millisecond
)

// WatcherFactory creates a file system watcher per watched document.
type WatcherFactory func() (ports.Watcher, error)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	runner       ports.ToolRunner
	logger       ports.Logger
	fp           ports.Fingerprinter
	reporter     ports.StatusReporter
	watchers     WatcherFactory
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	runner ports.ToolRunner,
	log ports.Logger,
	fp ports.Fingerprinter,
	reporter ports.StatusReporter,
) *App {
	return &App{
		configLoader: loader,
		runner:       runner,
		logger:       log,
		fp:           fp,
		reporter:     reporter,
		watchers: func() (ports.Watcher, error) {
			return watcher.NewWatcher()
		},
	}
}

// WithWatcherFactory replaces the watcher constructor.
// This is primarily used for testing.
func (a *App) WithWatcherFactory(factory WatcherFactory) *App {
	a.watchers = factory
	return a
}

// BuildOptions configuration for the Build and Watch methods.
type BuildOptions struct {
	// DVI forces DVI output regardless of configuration.
	DVI bool
	// TexCommand overrides the compiler binary.
	TexCommand string
	// MaxRuns overrides the compiler pass ceiling when positive.
	MaxRuns int
	// Status writes a machine-readable status file per document.
	Status bool
	// CheckCite reports bibliography entries that are never cited.
	CheckCite bool
	// Debounce overrides the watch coalescing window when positive.
	Debounce time.Duration
}

// Build compiles each named document to its fixpoint. Multiple documents
// build concurrently. Without arguments the document is resolved from the
// working directory.
func (a *App) Build(ctx context.Context, args []string, opts BuildOptions) error {
	jobs, err := a.prepare(args, opts)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			_, err := a.buildOne(ctx, job, opts, 0)
			return err
		})
	}
	return g.Wait()
}

// Watch builds each named document, then rebuilds it whenever a tracked
// input changes, until ctx is cancelled.
func (a *App) Watch(ctx context.Context, args []string, opts BuildOptions) error {
	jobs, err := a.prepare(args, opts)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			return a.watchOne(ctx, job, opts)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Output also removes the rendered document.
	Output bool
}

// cleanExtensions are the per-job control and byproduct files removed by
// Clean.
var cleanExtensions = []string{
	".aux", ".log", ".toc", ".lof", ".lot",
	".bbl", ".blg", ".idx", ".ind", ".ilg",
	".glo", ".gls", ".glg", ".acn", ".acr", ".alg",
	".out", ".nav", ".snm", ".vrb",
	".synctex.gz", ".texmk.json",
}

// Clean removes generated files for each named document.
func (a *App) Clean(_ context.Context, args []string, options CleanOptions) error {
	jobs, err := a.prepare(args, BuildOptions{})
	if err != nil {
		return err
	}

	var errs error
	for _, job := range jobs {
		removed := 0
		targets := make([]string, 0, len(cleanExtensions)+1)
		for _, ext := range cleanExtensions {
			targets = append(targets, job.doc.ControlFile(ext))
		}
		if options.Output {
			targets = append(targets, job.doc.OutputPath())
		}

		for _, target := range targets {
			if err := os.Remove(target); err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", target)))
				}
				continue
			}
			removed++
		}
		a.logger.Info(fmt.Sprintf("removed %d generated files for %s", removed, job.doc.JobName))
	}

	return errs
}

// job pairs a document with its effective configuration.
type job struct {
	doc *domain.Document
	cfg *domain.Config
}

func withDoc(j job, doc *domain.Document) job {
	j.doc = doc
	return j
}

// prepare resolves the documents to operate on and their configurations.
func (a *App) prepare(args []string, opts BuildOptions) ([]job, error) {
	sources, err := a.resolveSources(args)
	if err != nil {
		return nil, err
	}

	jobs := make([]job, 0, len(sources))
	for _, src := range sources {
		cfg, err := a.configLoader.Load(filepath.Dir(src.path))
		if err != nil {
			return nil, err
		}

		format := cfg.Format
		if src.hasFormat {
			format = src.format
		}
		if opts.DVI {
			format = domain.FormatDVI
		}
		cfg.Format = format
		if opts.TexCommand != "" {
			cfg.Compiler.Command = opts.TexCommand
		}
		if opts.MaxRuns > 0 {
			cfg.MaxPasses = opts.MaxRuns
		}
		if opts.Debounce > 0 {
			cfg.Debounce = opts.Debounce
		}

		doc, err := domain.NewDocument(src.path, format)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{doc: doc, cfg: cfg})
	}
	return jobs, nil
}

// buildOne compiles a single document. external carries change signals from
// outside the build, such as a database edit the watch loop observed.
func (a *App) buildOne(ctx context.Context, job job, opts BuildOptions, external domain.SignalSet) (*domain.Outcome, error) {
	an, err := analyzer.New(a.fp, job.cfg.ExtraMarkers)
	if err != nil {
		return nil, err
	}
	orch := orchestrator.New(a.runner, an, a.logger, job.cfg)

	outcome, err := orch.Build(ctx, job.doc, external)
	if opts.Status && outcome != nil {
		if reportErr := a.reporter.Report(job.doc, outcome); reportErr != nil {
			a.logger.Warn(fmt.Sprintf("failed to write status file: %v", reportErr))
		}
	}
	if err != nil {
		if outcome != nil && outcome.Diagnostic != "" {
			if excerpt := analyzer.ErrorExcerpt(outcome.Diagnostic); excerpt != "" {
				for line := range strings.SplitSeq(excerpt, "\n") {
					a.logger.Warn(line)
				}
			}
		}
		return outcome, err
	}

	if opts.CheckCite {
		a.reportUncited(an, job.doc)
	}
	return outcome, nil
}

func (a *App) reportUncited(an *analyzer.Analyzer, doc *domain.Document) {
	uncited, err := an.UncitedEntries(doc)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("citation check failed: %v", err))
		return
	}
	for _, key := range uncited {
		a.logger.Warn(fmt.Sprintf("bibliography entry %q is never cited", key))
	}
}

func (a *App) watchOne(ctx context.Context, job job, opts BuildOptions) error {
	w, err := a.watchers()
	if err != nil {
		return errors.Join(domain.ErrWatchFailed, err)
	}

	loop := watcher.NewLoop(w, a.fp, a.logger, job.cfg.Debounce, func(ctx context.Context, changed []string) ([]string, error) {
		// Each rebuild starts from a fresh dependency set, so files dropped
		// from the document stop being tracked.
		doc, err := domain.NewDocument(job.doc.SourcePath, job.cfg.Format)
		if err != nil {
			return nil, err
		}
		// Build failures keep the watch alive; the next save retries.
		_, err = a.buildOne(ctx, withDoc(job, doc), opts, externalSignals(changed))
		return doc.Dependencies(), err
	})

	a.logger.Info(fmt.Sprintf("watching %s", job.doc.JobName))
	loop.Trigger()
	return loop.Run(ctx, job.doc.Dependencies())
}

// externalSignals maps files changed between builds to the signals the next
// build must honor. A compiler pass never rewrites a bibliography database,
// so an edited .bib is invisible to the analyzer's per-pass diff and has to
// be carried in from the watch loop.
func externalSignals(changed []string) domain.SignalSet {
	var signals domain.SignalSet
	for _, path := range changed {
		if strings.EqualFold(filepath.Ext(path), ".bib") {
			signals = signals.Add(domain.SignalBibliographyDataChanged)
		}
	}
	return signals
}

// source is a resolved document source path with an optional format carried
// over from a project file.
type source struct {
	path      string
	format    domain.OutputFormat
	hasFormat bool
}

// resolveSources turns command line arguments into source files. Without
// arguments it consults the project file in the working directory, then
// falls back to the directory's single source file.
func (a *App) resolveSources(args []string) ([]source, error) {
	if len(args) > 0 {
		sources := make([]source, 0, len(args))
		for _, arg := range args {
			if _, err := os.Stat(arg); err != nil {
				return nil, zerr.With(domain.ErrSourceNotFound, "path", arg)
			}
			sources = append(sources, source{path: arg})
		}
		return sources, nil
	}

	if src, ok := a.resolveProjectFile(); ok {
		return []source{src}, nil
	}

	return resolveSingleSource()
}

// resolveProjectFile reads the IDE project file, retrying briefly while the
// IDE may still be writing it.
func (a *App) resolveProjectFile() (source, bool) {
	if _, err := os.Stat(ProjectFileName); err != nil {
		return source{}, false
	}

	for attempt := 0; attempt < projectFileRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(projectFileRetryDelay)
		}
		src, err := parseProjectFile(ProjectFileName)
		if err == nil {
			return src, true
		}
		a.logger.Warn(fmt.Sprintf("could not read %s: %v", ProjectFileName, err))
	}
	return source{}, false
}

// parseProjectFile extracts the main source file and output format from the
// key=value pairs of the project file.
func parseProjectFile(path string) (source, error) {
	// #nosec G304 -- fixed project file name in the working directory
	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, err
	}

	var src source
	for line := range strings.SplitSeq(string(data), "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "mainTexFile":
			src.path = value
		case "outputFormat":
			format, err := domain.ParseFormat(value)
			if err != nil {
				return source{}, err
			}
			src.format = format
			src.hasFormat = true
		}
	}

	if src.path == "" {
		return source{}, zerr.With(domain.ErrProjectFileParse, "path", path)
	}
	if _, err := os.Stat(src.path); err != nil {
		return source{}, zerr.With(domain.ErrSourceNotFound, "path", src.path)
	}
	return src, nil
}

// resolveSingleSource picks the directory's only top-level source file.
func resolveSingleSource() ([]source, error) {
	matches, err := filepath.Glob("*.tex")
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, domain.ErrNoSourceFile
	case 1:
		return []source{{path: matches[0]}}, nil
	default:
		return nil, zerr.With(domain.ErrMultipleSourceFiles, "candidates", strings.Join(matches, ", "))
	}
}
