package domain

import (
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// OutputFormat selects the rendering format produced by the compiler.
type OutputFormat string

const (
	// FormatPDF produces a .pdf via pdflatex.
	FormatPDF OutputFormat = "pdf"
	// FormatDVI produces a .dvi via latex.
	FormatDVI OutputFormat = "dvi"
)

// ParseFormat validates a textual output format from flags or config.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatDVI:
		return FormatDVI, nil
	default:
		return "", zerr.With(ErrUnknownFormat, "format", s)
	}
}

// Document identifies one build unit: the primary source file, its working
// directory, the chosen output format, and the set of dependency files
// discovered so far. The dependency set only grows within a build so the
// watcher observes every file that influenced the output; it is reset by
// creating a fresh Document for the next build.
type Document struct {
	// SourcePath is the absolute path of the primary .tex file.
	SourcePath string
	// WorkingDir is the directory all tools run in.
	WorkingDir string
	// JobName is the source file name without its .tex extension.
	JobName string
	// Format is the requested output format.
	Format OutputFormat

	deps map[string]struct{}
}

// NewDocument creates a Document for one build invocation. The dependency set
// starts with the source file itself.
func NewDocument(source string, format OutputFormat) (*Document, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve source path")
	}

	job := filepath.Base(abs)
	job = strings.TrimSuffix(job, ".tex")

	d := &Document{
		SourcePath: abs,
		WorkingDir: filepath.Dir(abs),
		JobName:    job,
		Format:     format,
		deps:       make(map[string]struct{}),
	}
	d.deps[abs] = struct{}{}
	return d, nil
}

// AddDependency records a file that influenced this build. Relative paths are
// resolved against the working directory. It reports whether the file was not
// tracked before.
func (d *Document) AddDependency(path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.WorkingDir, path)
	}
	path = filepath.Clean(path)
	if _, ok := d.deps[path]; ok {
		return false
	}
	d.deps[path] = struct{}{}
	return true
}

// Dependencies returns the accumulated dependency set, sorted for stable
// iteration.
func (d *Document) Dependencies() []string {
	out := make([]string, 0, len(d.deps))
	for p := range d.deps {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ControlFile returns the path of a tool-produced intermediate file for this
// job, e.g. ControlFile(".aux").
func (d *Document) ControlFile(ext string) string {
	return filepath.Join(d.WorkingDir, d.JobName+ext)
}

// OutputPath returns the path of the final rendered document.
func (d *Document) OutputPath() string {
	return d.ControlFile("." + string(d.Format))
}
