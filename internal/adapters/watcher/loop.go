package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
)

// RebuildFunc runs one build and returns the document's dependency set
// afterwards, so the loop can pick up inputs that appeared or vanished during
// the build. changed lists the tracked files whose content changed since the
// previous build; it is empty for the initial build. A build error is not
// fatal to the loop; watching continues.
type RebuildFunc func(ctx context.Context, changed []string) ([]string, error)

// Loop drives the watch cycle for one document: it tracks the dependency
// set's files and directories, verifies change events against content
// fingerprints and serializes rebuilds. Events arriving during a rebuild
// collapse into at most one queued follow-up build.
type Loop struct {
	watcher  ports.Watcher
	fp       ports.Fingerprinter
	logger   ports.Logger
	debounce time.Duration
	rebuild  RebuildFunc

	mu      sync.Mutex
	tracked map[string]domain.Fingerprint
	dirs    map[string]int
	changed map[string]struct{}

	trigger chan struct{}
}

// NewLoop creates a watch loop. The rebuild callback is invoked serially.
func NewLoop(w ports.Watcher, fp ports.Fingerprinter, log ports.Logger, debounce time.Duration, rebuild RebuildFunc) *Loop {
	return &Loop{
		watcher:  w,
		fp:       fp,
		logger:   log,
		debounce: debounce,
		rebuild:  rebuild,
		tracked:  make(map[string]domain.Fingerprint),
		dirs:     make(map[string]int),
		changed:  make(map[string]struct{}),
		trigger:  make(chan struct{}, 1),
	}
}

// Run watches the initial dependency set and rebuilds on changes until ctx is
// cancelled. Cancellation is graceful: a rebuild in flight finishes its
// current pass, then the loop returns.
func (l *Loop) Run(ctx context.Context, initial []string) error {
	if err := l.setDependencies(initial); err != nil {
		return err
	}
	if err := l.watcher.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = l.watcher.Stop()
	}()

	debouncer := NewDebouncer(l.debounce, func(paths []string) {
		if l.anyChanged(paths) {
			l.requestRebuild()
		}
	})

	go func() {
		for event := range l.watcher.Events() {
			if l.tracks(event.Path) {
				debouncer.Add(event.Path)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.trigger:
			deps, err := l.rebuild(ctx, l.takeChanged())
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				l.logger.Warn(fmt.Sprintf("rebuild failed, watching for further changes: %v", err))
			}
			if deps != nil {
				if err := l.setDependencies(deps); err != nil {
					return err
				}
			}
		}
	}
}

// Trigger requests a rebuild outside the event path, used for the initial
// build when the loop starts.
func (l *Loop) Trigger() {
	l.requestRebuild()
}

// requestRebuild queues at most one pending rebuild.
func (l *Loop) requestRebuild() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Loop) tracks(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tracked[filepath.Clean(path)]
	return ok
}

// anyChanged re-fingerprints the given paths and reports whether any content
// actually changed. Save events that leave the content identical do not
// trigger a rebuild.
func (l *Loop) anyChanged(paths []string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, path := range paths {
		path = filepath.Clean(path)
		last, ok := l.tracked[path]
		if !ok {
			continue
		}
		current, err := l.fp.Fingerprint(path)
		if err != nil {
			continue
		}
		if !current.Equal(last) {
			l.tracked[path] = current
			l.changed[path] = struct{}{}
			changed = true
		}
	}
	return changed
}

// takeChanged drains the set of files changed since the previous rebuild.
func (l *Loop) takeChanged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.changed) == 0 {
		return nil
	}
	paths := make([]string, 0, len(l.changed))
	for path := range l.changed {
		paths = append(paths, path)
	}
	l.changed = make(map[string]struct{})
	return paths
}

// setDependencies replaces the tracked file set and adjusts the watched
// directories to cover exactly the directories containing tracked files.
func (l *Loop) setDependencies(deps []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make(map[string]domain.Fingerprint, len(deps))
	nextDirs := make(map[string]int, len(deps))
	for _, dep := range deps {
		dep = filepath.Clean(dep)
		fingerprint, err := l.fp.Fingerprint(dep)
		if err != nil {
			return err
		}
		next[dep] = fingerprint
		nextDirs[filepath.Dir(dep)]++
	}

	for dir := range nextDirs {
		if l.dirs[dir] == 0 {
			if err := l.watcher.Add(dir); err != nil {
				return err
			}
		}
	}
	for dir := range l.dirs {
		if nextDirs[dir] == 0 {
			if err := l.watcher.Remove(dir); err != nil {
				return err
			}
		}
	}

	l.tracked = next
	l.dirs = nextDirs
	return nil
}
