package watcher_test

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/texmk/internal/adapters/fs"
	"go.trai.ch/texmk/internal/adapters/watcher"
	"go.trai.ch/texmk/internal/core/ports"
	"go.trai.ch/texmk/internal/core/ports/mocks"
)

// stubWatcher feeds scripted events into the loop and records directory
// registrations.
type stubWatcher struct {
	events chan ports.WatchEvent
	once   sync.Once

	mu      sync.Mutex
	added   []string
	removed []string
}

func newStubWatcher() *stubWatcher {
	return &stubWatcher{events: make(chan ports.WatchEvent, 16)}
}

func (s *stubWatcher) Start(context.Context) error { return nil }

func (s *stubWatcher) Add(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = append(s.added, dir)
	return nil
}

func (s *stubWatcher) Remove(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, dir)
	return nil
}

func (s *stubWatcher) Stop() error {
	s.once.Do(func() { close(s.events) })
	return nil
}

func (s *stubWatcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range s.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (s *stubWatcher) send(path string) {
	s.events <- ports.WatchEvent{Path: path, Operation: ports.OpWrite}
}

type loopFixture struct {
	dir     string
	source  string
	stub    *stubWatcher
	loop    *watcher.Loop
	mu      sync.Mutex
	builds  int
	changed [][]string
	nextDep []string
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	f := &loopFixture{dir: t.TempDir(), stub: newStubWatcher()}
	f.source = filepath.Join(f.dir, "main.tex")
	require.NoError(t, os.WriteFile(f.source, []byte("v1"), 0o644))

	f.loop = watcher.NewLoop(f.stub, fs.NewFingerprinter(), log, 100*time.Millisecond, func(_ context.Context, changed []string) ([]string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.builds++
		f.changed = append(f.changed, changed)
		return f.nextDep, nil
	})
	return f
}

func (f *loopFixture) buildCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

func (f *loopFixture) changedSets() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.changed...)
}

func TestLoop_BurstTriggersSingleRebuild(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newLoopFixture(t)
		ctx, cancel := context.WithCancel(t.Context())

		done := make(chan error, 1)
		go func() { done <- f.loop.Run(ctx, []string{f.source}) }()
		synctest.Wait()

		require.NoError(t, os.WriteFile(f.source, []byte("v2"), 0o644))
		f.stub.send(f.source)
		f.stub.send(f.source)
		f.stub.send(f.source)

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 1, f.buildCount())

		cancel()
		require.True(t, errors.Is(<-done, context.Canceled))
	})
}

func TestLoop_UnchangedContentDoesNotRebuild(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newLoopFixture(t)
		ctx, cancel := context.WithCancel(t.Context())

		done := make(chan error, 1)
		go func() { done <- f.loop.Run(ctx, []string{f.source}) }()
		synctest.Wait()

		// A save event without a content change must not rebuild.
		f.stub.send(f.source)

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 0, f.buildCount())

		cancel()
		<-done
	})
}

func TestLoop_UntrackedPathIgnored(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newLoopFixture(t)
		ctx, cancel := context.WithCancel(t.Context())

		done := make(chan error, 1)
		go func() { done <- f.loop.Run(ctx, []string{f.source}) }()
		synctest.Wait()

		f.stub.send(filepath.Join(f.dir, "notes.txt"))

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 0, f.buildCount())

		cancel()
		<-done
	})
}

func TestLoop_RebuildRefreshesDependencySet(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newLoopFixture(t)
		chapterDir := filepath.Join(f.dir, "chapters")
		require.NoError(t, os.MkdirAll(chapterDir, 0o755))
		chapter := filepath.Join(chapterDir, "intro.tex")
		require.NoError(t, os.WriteFile(chapter, []byte("intro"), 0o644))

		// The next build discovers a dependency in a new directory.
		f.nextDep = []string{f.source, chapter}

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() { done <- f.loop.Run(ctx, []string{f.source}) }()
		synctest.Wait()

		require.NoError(t, os.WriteFile(f.source, []byte("v2"), 0o644))
		f.stub.send(f.source)
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, 1, f.buildCount())

		f.stub.mu.Lock()
		added := append([]string(nil), f.stub.added...)
		f.stub.mu.Unlock()
		assert.Contains(t, added, chapterDir)

		// Changes in the new dependency now trigger rebuilds too.
		require.NoError(t, os.WriteFile(chapter, []byte("intro v2"), 0o644))
		f.stub.send(chapter)
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 2, f.buildCount())

		cancel()
		<-done
	})
}

func TestLoop_RebuildReceivesChangedPaths(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newLoopFixture(t)
		bib := filepath.Join(f.dir, "refs.bib")
		require.NoError(t, os.WriteFile(bib, []byte("@book{knuth84,\n}\n"), 0o644))

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		f.loop.Trigger()
		go func() { done <- f.loop.Run(ctx, []string{f.source, bib}) }()
		synctest.Wait()

		// The initial build sees no prior changes.
		require.Equal(t, 1, f.buildCount())
		assert.Empty(t, f.changedSets()[0])

		require.NoError(t, os.WriteFile(bib, []byte("@book{knuth84,\n year = 1984,\n}\n"), 0o644))
		f.stub.send(bib)
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 2, f.buildCount())
		assert.Equal(t, []string{bib}, f.changedSets()[1])

		cancel()
		<-done
	})
}

func TestLoop_TriggerRunsInitialBuild(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newLoopFixture(t)
		ctx, cancel := context.WithCancel(t.Context())

		done := make(chan error, 1)
		f.loop.Trigger()
		go func() { done <- f.loop.Run(ctx, []string{f.source}) }()
		synctest.Wait()

		assert.Equal(t, 1, f.buildCount())

		cancel()
		<-done
	})
}
