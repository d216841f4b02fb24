package analyzer

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/texmk/internal/core/domain"
)

// Control file patterns, following the .aux conventions emitted by the
// compiler.
var (
	citationRe = regexp.MustCompile(`\\citation\{([^}]*)\}`)
	bibdataRe  = regexp.MustCompile(`\\bibdata\{([^}]*)\}`)
	auxInputRe = regexp.MustCompile(`\\@input\{([^}]*\.aux)\}`)
	// glossaryRe matches \@newglossary{name}{log-ext}{out-ext}{in-ext}
	// declarations written to the aux file by glossary packages.
	glossaryRe = regexp.MustCompile(`\\@newglossary\{([^}]*)\}\{([^}]*)\}\{([^}]*)\}\{([^}]*)\}`)
	bibciteRe  = regexp.MustCompile(`\\bibcite\{([^}]*)\}\{[^}]*\}`)
	bibentryRe = regexp.MustCompile(`(?m)^@\w+\{\s*([^,\s]+)\s*,`)
)

// Snapshot captures the state of a document's auxiliary control files at one
// point in time. The analyzer compares a before and an after snapshot of the
// same document to detect data changes a pass caused.
type Snapshot struct {
	// Citations counts \citation entries per key across the main aux file
	// and every aux file it inputs.
	Citations map[string]int
	// BibDataFiles are the bibliography database names referenced by
	// \bibdata, without extension.
	BibDataFiles []string
	// BibDatabase is the combined fingerprint of the referenced .bib files.
	BibDatabase domain.Fingerprint
	// Toc is the fingerprint of the table of contents file.
	Toc domain.Fingerprint
	// Index is the fingerprint of the raw index data file (.idx).
	Index domain.Fingerprint
	// IndexOutput is the fingerprint of the generated index (.ind).
	IndexOutput domain.Fingerprint
	// Glossaries are the glossaries the document declares, with the
	// fingerprints of their raw and generated files.
	Glossaries []Glossary
}

// Glossary is one \@newglossary declaration: the compiler writes raw entries
// to the in-extension file and reads the generated out-extension file back on
// the next pass.
type Glossary struct {
	Name   string
	LogExt string
	OutExt string
	InExt  string
	Input  domain.Fingerprint
	Output domain.Fingerprint
}

// Snapshot reads the document's control files. Missing files are normal
// before the first pass and are represented as absent fingerprints.
func (a *Analyzer) Snapshot(doc *domain.Document) (*Snapshot, error) {
	snap := &Snapshot{Citations: make(map[string]int)}

	mainAux := doc.ControlFile(".aux")
	for _, auxPath := range auxFileSet(doc, mainAux) {
		content, err := os.ReadFile(auxPath) //nolint:gosec // control file of the build
		if err != nil {
			continue
		}
		for _, m := range citationRe.FindAllStringSubmatch(string(content), -1) {
			for key := range strings.SplitSeq(m[1], ",") {
				snap.Citations[strings.TrimSpace(key)]++
			}
		}
		if auxPath == mainAux {
			snap.BibDataFiles = bibDataNames(string(content))
			snap.Glossaries = glossaryDeclarations(string(content))
		}
	}

	var err error
	if snap.BibDatabase, err = a.bibFingerprint(doc, snap.BibDataFiles); err != nil {
		return nil, err
	}
	if snap.Toc, err = a.fp.Fingerprint(doc.ControlFile(".toc")); err != nil {
		return nil, err
	}
	if snap.Index, err = a.fp.Fingerprint(doc.ControlFile(".idx")); err != nil {
		return nil, err
	}
	if snap.IndexOutput, err = a.fp.Fingerprint(doc.ControlFile(".ind")); err != nil {
		return nil, err
	}
	for i, g := range snap.Glossaries {
		if snap.Glossaries[i].Input, err = a.fp.Fingerprint(doc.ControlFile("." + g.InExt)); err != nil {
			return nil, err
		}
		if snap.Glossaries[i].Output, err = a.fp.Fingerprint(doc.ControlFile("." + g.OutExt)); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

// glossaryDeclarations extracts the \@newglossary declarations of the main
// aux file. Duplicate declarations of the same glossary collapse into the
// first one.
func glossaryDeclarations(aux string) []Glossary {
	var glossaries []Glossary
	seen := make(map[string]struct{})
	for _, m := range glossaryRe.FindAllStringSubmatch(aux, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		glossaries = append(glossaries, Glossary{
			Name:   m[1],
			LogExt: m[2],
			OutExt: m[3],
			InExt:  m[4],
		})
	}
	return glossaries
}

// auxFileSet returns the main aux file plus every aux file it references via
// \@input, resolved against the working directory.
func auxFileSet(doc *domain.Document, mainAux string) []string {
	files := []string{mainAux}

	content, err := os.ReadFile(mainAux) //nolint:gosec // control file of the build
	if err != nil {
		return files
	}
	for _, m := range auxInputRe.FindAllStringSubmatch(string(content), -1) {
		files = append(files, filepath.Join(doc.WorkingDir, m[1]))
	}
	return files
}

// bibDataNames splits the \bibdata argument, which may list several databases
// separated by commas.
func bibDataNames(aux string) []string {
	var names []string
	for _, m := range bibdataRe.FindAllStringSubmatch(aux, -1) {
		for name := range strings.SplitSeq(m[1], ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// bibFingerprint folds the fingerprints of all referenced .bib files into
// one, so any database edit registers as a change.
func (a *Analyzer) bibFingerprint(doc *domain.Document, names []string) (domain.Fingerprint, error) {
	var combined domain.Fingerprint
	for _, name := range names {
		fp, err := a.fp.Fingerprint(bibPath(doc, name))
		if err != nil {
			return domain.Fingerprint{}, err
		}
		if fp.Exists {
			combined.Exists = true
			combined.Sum ^= fp.Sum
		}
	}
	return combined, nil
}

func bibPath(doc *domain.Document, name string) string {
	if !strings.HasSuffix(name, ".bib") {
		name += ".bib"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(doc.WorkingDir, name)
}
