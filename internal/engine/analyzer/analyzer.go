// Package analyzer extracts signals from a completed pass's captured output
// and from auxiliary control file diffs. It is deliberately isolated from
// orchestration logic so the marker table can evolve without touching the
// state machine.
package analyzer

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
)

// Analyzer scans pass results for the signal vocabulary.
type Analyzer struct {
	fp      ports.Fingerprinter
	markers []marker
}

// New creates an Analyzer, extending the built-in marker table with the
// configured extra rules.
func New(fp ports.Fingerprinter, extra []domain.MarkerRule) (*Analyzer, error) {
	extraMarkers, err := compileExtra(extra)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		fp:      fp,
		markers: append(append([]marker(nil), builtinMarkers...), extraMarkers...),
	}, nil
}

// Analyze derives the signal set of one compiler pass from its captured
// output and the control file snapshots taken before and after it. It is a
// pure function of its inputs and mutates no external state.
//
// A fatal error takes priority: it suppresses every rerun signal so the loop
// always stops.
func (a *Analyzer) Analyze(pass *domain.PassResult, before, after *Snapshot) domain.SignalSet {
	var signals domain.SignalSet

	for _, m := range a.markers {
		if m.re.MatchString(pass.Output) {
			signals = signals.Add(m.signal)
		}
	}

	if len(a.undefinedCitations(pass.Output)) > 0 {
		signals = signals.Add(domain.SignalCitationUndefined)
	}

	if signals.Has(domain.SignalToolFatal) {
		return domain.SignalSet(0).Add(domain.SignalToolFatal)
	}

	if pass.ExitCode != 0 {
		signals = signals.Add(domain.SignalToolError)
	}

	if bibliographyChanged(before, after) {
		signals = signals.Add(domain.SignalBibliographyDataChanged)
	}
	if indexChanged(before, after) {
		signals = signals.Add(domain.SignalIndexDataChanged)
	}
	if !before.Toc.Equal(after.Toc) {
		signals = signals.Add(domain.SignalRerunRequested)
	}

	return signals
}

// undefinedCitations returns the distinct citation keys the pass reported as
// undefined. Repeated warnings for the same key collapse into one.
func (a *Analyzer) undefinedCitations(out string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, m := range citationUndefinedRe.FindAllStringSubmatch(out, -1) {
		key := strings.TrimSuffix(m[1], "'")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// bibliographyChanged reports whether the pass changed the bibliography
// inputs: the citation set, or the database files themselves.
func bibliographyChanged(before, after *Snapshot) bool {
	if len(after.BibDataFiles) == 0 {
		// Document cites nothing; nothing for the resolver to do.
		return false
	}
	if !citationsEqual(before.Citations, after.Citations) {
		return true
	}
	return !before.BibDatabase.Equal(after.BibDatabase)
}

// indexChanged reports whether any raw index or glossary data changed, or an
// expected output is not yet generated.
func indexChanged(before, after *Snapshot) bool {
	if indexDataPending(before, after) {
		return true
	}
	for _, g := range after.Glossaries {
		if glossaryPending(before, g) {
			return true
		}
	}
	return false
}

// indexDataPending applies the change rule to the default .idx/.ind pair.
func indexDataPending(before, after *Snapshot) bool {
	if !after.Index.Exists {
		return false
	}
	if !before.Index.Equal(after.Index) {
		return true
	}
	return !after.IndexOutput.Exists
}

// glossaryPending applies the change rule to one declared glossary: its raw
// file changed during the pass, or it exists without a generated counterpart.
func glossaryPending(before *Snapshot, g Glossary) bool {
	if !g.Input.Exists {
		return false
	}
	prev, ok := findGlossary(before, g.Name)
	if !ok || !prev.Input.Equal(g.Input) {
		return true
	}
	return !g.Output.Exists
}

func findGlossary(snap *Snapshot, name string) (Glossary, bool) {
	for _, g := range snap.Glossaries {
		if g.Name == name {
			return g, true
		}
	}
	return Glossary{}, false
}

// IndexRun is one invocation of the index generator: the raw file to process
// and, for glossaries, where to write the generated output and transcript.
type IndexRun struct {
	Input  string
	Output string
	Log    string
	Style  string
}

// IndexRuns lists the index generator invocations the pass made necessary:
// the default index when its raw data changed, plus one run per pending
// glossary. Glossary runs carry the document's .ist style file when present.
// File names are relative to the document's working directory.
func (a *Analyzer) IndexRuns(doc *domain.Document, before, after *Snapshot) []IndexRun {
	var runs []IndexRun
	if indexDataPending(before, after) {
		runs = append(runs, IndexRun{Input: doc.JobName + ".idx"})
	}

	style := ""
	if _, err := os.Stat(doc.ControlFile(".ist")); err == nil {
		style = doc.JobName + ".ist"
	}
	for _, g := range after.Glossaries {
		if !glossaryPending(before, g) {
			continue
		}
		runs = append(runs, IndexRun{
			Input:  doc.JobName + "." + g.InExt,
			Output: doc.JobName + "." + g.OutExt,
			Log:    doc.JobName + "." + g.LogExt,
			Style:  style,
		})
	}
	return runs
}

func citationsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// ErrorExcerpt extracts the compiler's error lines ("! <message>" and their
// "l.<line>" context) from captured output for a compact diagnostic.
func ErrorExcerpt(out string) string {
	var lines []string
	for _, groups := range errorLineRe.FindAllStringSubmatch(out, -1) {
		for _, g := range groups[1:] {
			if g = strings.TrimSpace(strings.ReplaceAll(g, "\r", "")); g != "" {
				lines = append(lines, g)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// logInputRe matches files the compiler reports opening, e.g. "(./chapter1.tex".
var logInputRe = regexp.MustCompile(`\((\.{1,2}/[^()\s]+\.(?:tex|sty|cls|bib))`)

// DiscoverDependencies grows the document's dependency set from the pass
// output and the aux control files: input files the compiler opened, sub-aux
// references and bibliography databases. It returns the newly discovered
// paths.
func (a *Analyzer) DiscoverDependencies(doc *domain.Document, out string) []string {
	var added []string
	record := func(path string) {
		if _, err := os.Stat(path); err != nil {
			return
		}
		if doc.AddDependency(path) {
			added = append(added, path)
		}
	}

	for _, m := range logInputRe.FindAllStringSubmatch(out, -1) {
		record(filepath.Join(doc.WorkingDir, m[1]))
	}

	mainAux := doc.ControlFile(".aux")
	for _, auxPath := range auxFileSet(doc, mainAux) {
		if auxPath == mainAux {
			continue
		}
		record(strings.TrimSuffix(auxPath, ".aux") + ".tex")
	}

	content, err := os.ReadFile(mainAux) //nolint:gosec // control file of the build
	if err == nil {
		for _, name := range bibDataNames(string(content)) {
			record(bibPath(doc, name))
		}
	}

	return added
}

// UncitedEntries compares the entries of the bibliography databases against
// the keys the document actually cites and returns the entries never cited.
func (a *Analyzer) UncitedEntries(doc *domain.Document) ([]string, error) {
	aux, err := os.ReadFile(doc.ControlFile(".aux")) //nolint:gosec // control file of the build
	if err != nil {
		return nil, nil
	}

	cited := make(map[string]struct{})
	for _, m := range bibciteRe.FindAllStringSubmatch(string(aux), -1) {
		cited[m[1]] = struct{}{}
	}

	var uncited []string
	for _, name := range bibDataNames(string(aux)) {
		bib, err := os.ReadFile(bibPath(doc, name)) //nolint:gosec // referenced by the document
		if err != nil {
			continue
		}
		for _, m := range bibentryRe.FindAllStringSubmatch(string(bib), -1) {
			if _, ok := cited[m[1]]; !ok {
				uncited = append(uncited, m[1])
			}
		}
	}
	return uncited, nil
}
