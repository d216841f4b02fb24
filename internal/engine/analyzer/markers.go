package analyzer

import (
	"regexp"

	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/zerr"
)

// marker maps one textual pattern in captured tool output to a signal.
type marker struct {
	signal domain.Signal
	re     *regexp.Regexp
}

// builtinMarkers is the fixed vocabulary of signal patterns. Matching is case
// tolerant and whitespace tolerant: tool output wraps lines at arbitrary
// columns and has changed casing across distributions. Unrecognized warning
// text deliberately produces no signal so evolving tool output does not break
// the loop.
var builtinMarkers = []marker{
	{domain.SignalRerunRequested, regexp.MustCompile(`(?i)rerun\s+to\s+get\s+(?:the\s+)?cross-references\s+right`)},
	{domain.SignalRerunRequested, regexp.MustCompile(`(?i)label\(s\)\s+may\s+have\s+changed`)},
	{domain.SignalRerunRequested, regexp.MustCompile(`(?i)no\s+file\s+\S+\.(?:toc|lof|lot)\b`)},
	{domain.SignalReferenceUndefined, regexp.MustCompile(`(?i)latex\s+warning:\s+reference\s+.+?\s+undefined`)},
	{domain.SignalReferenceUndefined, regexp.MustCompile(`(?i)there\s+were\s+undefined\s+references`)},
	{domain.SignalCitationUndefined, regexp.MustCompile(`(?i)no\s+file\s+\S+\.bbl\b`)},
	{domain.SignalToolFatal, regexp.MustCompile(`(?m)^!\s`)},
	{domain.SignalToolFatal, regexp.MustCompile(`(?i)no\s+pages\s+of\s+output`)},
	{domain.SignalToolFatal, regexp.MustCompile(`(?i)emergency\s+stop`)},
}

// citationUndefinedRe captures the citation key so undefined citations can be
// deduplicated per key before being reported as one signal.
var citationUndefinedRe = regexp.MustCompile("(?i)latex\\s+warning:\\s+citation\\s+[`'\"]?([^'\"\\s]+)'?\\s+.*undefined")

// compileExtra compiles user-configured marker rules into the same shape as
// the built-in table.
func compileExtra(rules []domain.MarkerRule) ([]marker, error) {
	markers := make([]marker, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, zerr.With(domain.ErrMarkerPatternInvalid, "pattern", r.Pattern)
		}
		markers = append(markers, marker{signal: r.Signal, re: re})
	}
	return markers, nil
}

// errorLineRe extracts compiler error lines ("! <message>") and their
// "l.<line>" context for diagnostics.
var errorLineRe = regexp.MustCompile(`(?m)^!\s?(.*)$|^(l\.\d.*)$|(No pages of output\.)`)
