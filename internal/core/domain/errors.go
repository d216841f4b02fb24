package domain

import "go.trai.ch/zerr"

var (
	// ErrToolNotFound is returned when a tool binary cannot be located on the
	// PATH. Fatal, never retried.
	ErrToolNotFound = zerr.New("tool not found")

	// ErrToolLaunchFailed is returned when spawning a tool process fails at
	// the OS level. Fatal, never retried.
	ErrToolLaunchFailed = zerr.New("failed to launch tool")

	// ErrToolFatal is returned when the compiler reported an unrecoverable
	// error. The build stops with the captured output attached.
	ErrToolFatal = zerr.New("compiler reported a fatal error")

	// ErrCeilingExceeded is returned when the fixpoint loop did not converge
	// within the configured maximum number of compiler passes.
	ErrCeilingExceeded = zerr.New("maximum number of compiler passes exceeded")

	// ErrSourceNotFound is returned when the given source file does not exist.
	ErrSourceNotFound = zerr.New("source file not found")

	// ErrNoSourceFile is returned when no filename was given and the working
	// directory contains no *.tex file.
	ErrNoSourceFile = zerr.New("could not find a *.tex file in the current directory")

	// ErrMultipleSourceFiles is returned when no filename was given and the
	// working directory contains more than one *.tex file.
	ErrMultipleSourceFiles = zerr.New("multiple *.tex files in the current directory, specify one")

	// ErrProjectFileParse is returned when the .texlipse project file does not
	// name a main source file.
	ErrProjectFileParse = zerr.New("could not find mainTexFile in .texlipse")

	// ErrUnknownFormat is returned when the configured output format is
	// neither pdf nor dvi.
	ErrUnknownFormat = zerr.New("unknown output format, expected 'pdf' or 'dvi'")

	// ErrUnknownSignal is returned when a config marker names a signal that
	// does not exist.
	ErrUnknownSignal = zerr.New("unknown signal name")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrMarkerPatternInvalid is returned when a config marker pattern is not
	// a valid regular expression.
	ErrMarkerPatternInvalid = zerr.New("invalid marker pattern")

	// ErrStatusWriteFailed is returned when the status report cannot be
	// written.
	ErrStatusWriteFailed = zerr.New("failed to write status report")

	// ErrWatchFailed is returned when the file watcher cannot be started.
	ErrWatchFailed = zerr.New("failed to start file watcher")
)
