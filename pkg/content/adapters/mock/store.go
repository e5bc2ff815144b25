// Package mock provides an in-memory content.Store for testing.
package mock

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp-forge/hermes-wiki/pkg/content"
)

var _ content.Store = (*Store)(nil)

// Store is a fake content store. Files are keyed by their full path; a
// directory exists whenever some file lives below it.
type Store struct {
	mu sync.Mutex

	// Files stores file content by path.
	Files map[string][]byte

	// Errors forces FetchContent and List to fail for a path.
	Errors map[string]error

	// FetchCalls counts FetchContent calls by path.
	FetchCalls map[string]int

	// ListCalls counts List calls by path.
	ListCalls map[string]int

	// Listings overrides List for a path, returning the entries verbatim
	// and in the given order.
	Listings map[string][]content.Entry

	// BeforeFetch, if set, runs at the start of every FetchContent call.
	BeforeFetch func(path string)
}

// NewStore creates an empty fake store.
func NewStore() *Store {
	return &Store{
		Files:      make(map[string][]byte),
		Errors:     make(map[string]error),
		FetchCalls: make(map[string]int),
		ListCalls:  make(map[string]int),
		Listings:   make(map[string][]content.Entry),
	}
}

// WithFile adds a file to the store.
func (s *Store) WithFile(p, body string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files[strings.Trim(p, "/")] = []byte(body)
	return s
}

// WithError makes requests for path fail with err.
func (s *Store) WithError(p string, err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors[strings.Trim(p, "/")] = err
	return s
}

// WithListing makes List return entries for path in the given order.
func (s *Store) WithListing(p string, names ...string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]content.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, content.Entry{Name: name, Type: content.EntryTypeFile})
	}
	s.Listings[strings.Trim(p, "/")] = entries
	return s
}

// RemoveFile deletes a file from the store.
func (s *Store) RemoveFile(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Files, strings.Trim(p, "/"))
}

// Fetches returns how many times path was fetched.
func (s *Store) Fetches(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FetchCalls[strings.Trim(p, "/")]
}

// Lists returns how many times path was listed.
func (s *Store) Lists(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ListCalls[strings.Trim(p, "/")]
}

// Name returns the store name.
func (s *Store) Name() string {
	return "mock"
}

// FetchContent returns the stored file.
func (s *Store) FetchContent(ctx context.Context, p string) ([]byte, error) {
	p = strings.Trim(p, "/")

	s.mu.Lock()
	s.FetchCalls[p]++
	hook := s.BeforeFetch
	s.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.Errors[p]; ok {
		return nil, err
	}
	body, ok := s.Files[p]
	if !ok {
		return nil, content.ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

// List returns the entries directly below path, sorted by name.
func (s *Store) List(ctx context.Context, p string) ([]content.Entry, error) {
	p = strings.Trim(p, "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls[p]++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.Errors[p]; ok {
		return nil, err
	}
	if entries, ok := s.Listings[p]; ok {
		return append([]content.Entry(nil), entries...), nil
	}
	// The GitHub API answers a directory request for a file with the file.
	if _, ok := s.Files[p]; ok {
		return nil, content.ErrNotADirectory
	}

	prefix := p + "/"
	seen := make(map[string]content.Entry)
	for name, body := range s.Files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if dir, _, nested := strings.Cut(rest, "/"); nested {
			seen[dir] = content.Entry{Name: dir, Type: content.EntryTypeDir}
			continue
		}
		seen[rest] = content.Entry{Name: path.Base(name), Type: content.EntryTypeFile, Size: int64(len(body))}
	}
	if len(seen) == 0 {
		return nil, content.ErrNotFound
	}

	entries := make([]content.Entry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
