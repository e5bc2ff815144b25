// Package local provides a content.Store over a wiki checkout on a
// filesystem, for development and tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/hermes-wiki/pkg/content"
)

// DefaultMaxFileSize matches the largest blob the GitHub contents API
// returns inline.
const DefaultMaxFileSize = 1024 * 1024

// Config contains configuration for the local content store.
type Config struct {
	Root        string `hcl:"root"`                    // Directory holding the checkout
	MaxFileSize int64  `hcl:"max_file_size,optional"` // Larger files are reported as too large
}

var _ content.Store = (*Store)(nil)

// Store implements content.Store over an afero filesystem.
type Store struct {
	fs          afero.Fs
	maxFileSize int64
	logger      hclog.Logger
}

// NewStore creates a store rooted at cfg.Root on the OS filesystem.
func NewStore(cfg *Config, logger hclog.Logger) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("root is required")
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", cfg.Root)
	}
	return NewStoreFromFs(afero.NewBasePathFs(afero.NewOsFs(), cfg.Root), cfg.MaxFileSize, logger), nil
}

// NewStoreFromFs creates a store over an existing filesystem.
func NewStoreFromFs(fsys afero.Fs, maxFileSize int64, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Store{
		fs:          fsys,
		maxFileSize: maxFileSize,
		logger:      logger.Named("local-content"),
	}
}

// Name returns the store name.
func (s *Store) Name() string {
	return "local"
}

// FetchContent reads the file at path.
func (s *Store) FetchContent(_ context.Context, path string) ([]byte, error) {
	name := clean(path)

	info, err := s.fs.Stat(name)
	if err != nil {
		return nil, mapError(err, name)
	}
	if info.IsDir() {
		return nil, content.ErrNotFound
	}
	if info.Size() > s.maxFileSize {
		return nil, content.ErrTooLarge
	}

	body, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return nil, mapError(err, name)
	}
	return body, nil
}

// List reads the directory at path.
func (s *Store) List(_ context.Context, path string) ([]content.Entry, error) {
	name := clean(path)

	info, err := s.fs.Stat(name)
	if err != nil {
		return nil, mapError(err, name)
	}
	if !info.IsDir() {
		return nil, content.ErrNotADirectory
	}

	infos, err := afero.ReadDir(s.fs, name)
	if err != nil {
		return nil, mapError(err, name)
	}

	entries := make([]content.Entry, 0, len(infos))
	for _, fi := range infos {
		entry := content.Entry{Name: fi.Name(), Type: content.EntryTypeFile, Size: fi.Size()}
		if fi.IsDir() {
			entry.Type = content.EntryTypeDir
			entry.Size = 0
		}
		entries = append(entries, entry)
	}
	s.logger.Trace("listed directory", "path", name, "entries", len(entries))
	return entries, nil
}

func clean(path string) string {
	return filepath.Clean("/" + strings.Trim(path, "/"))
}

func mapError(err error, name string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return content.ErrNotFound
	}
	return fmt.Errorf("failed to access %s: %w", name, err)
}
