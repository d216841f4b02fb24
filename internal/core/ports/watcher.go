package ports

import (
	"context"
	"iter"
)

// WatchOp represents the type of file system operation.
type WatchOp uint8

const (
	// OpCreate indicates a file or directory was created.
	OpCreate WatchOp = iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// WatchEvent represents a file system event from the watcher.
type WatchEvent struct {
	// Path is the absolute path of the file or directory that changed.
	Path string
	// Operation is the type of change that occurred.
	Operation WatchOp
}

// Watcher defines the interface for watching file system changes. Directories
// are added and removed as a document's dependency set evolves between
// builds.
type Watcher interface {
	// Start begins delivering events. It returns an error if the underlying
	// watch mechanism fails to initialize.
	Start(ctx context.Context) error
	// Add starts watching a directory. Adding an already watched directory
	// is a no-op.
	Add(dir string) error
	// Remove stops watching a directory.
	Remove(dir string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Events returns an iterator of file system events. The iterator ends
	// when the watcher is stopped or the context passed to Start is
	// cancelled.
	Events() iter.Seq[WatchEvent]
}
