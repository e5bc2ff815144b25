// Package content defines the contract between the wiki and the remote
// store holding its markdown sources.
package content

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested path does not exist.
	ErrNotFound = errors.New("content not found")

	// ErrTooLarge is returned when the store refuses to serve the path
	// because it exceeds the store's size limit.
	ErrTooLarge = errors.New("content too large")
)

// Entry is a single item of a directory listing.
type Entry struct {
	Name string
	Type EntryType
	Size int64
}

// EntryType distinguishes files from directories in a listing.
type EntryType string

const (
	EntryTypeFile EntryType = "file"
	EntryTypeDir  EntryType = "dir"
)

// Store fetches raw content and directory listings by path. Paths are
// relative to the store root (e.g. "wiki/Beatmap/en.md").
type Store interface {
	// Name returns the store name for logging.
	Name() string

	// FetchContent returns the raw bytes stored at path.
	FetchContent(ctx context.Context, path string) ([]byte, error)

	// List returns the entries of the directory at path. If path refers to
	// a file, List returns ErrNotADirectory.
	List(ctx context.Context, path string) ([]Entry, error)
}

// ErrNotADirectory is returned by List when the path refers to a file.
var ErrNotADirectory = errors.New("path is not a directory")

// IsMissing reports whether err means the content is absent for the
// purposes of resolution (not found or too large).
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTooLarge)
}
