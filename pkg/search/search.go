// Package search defines the index the wiki mirrors its pages into and the
// provider abstraction over search backends.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/hashicorp-forge/hermes-wiki/pkg/render"
)

// ProviderType identifies a search backend.
type ProviderType string

const (
	ProviderTypeAlgolia     ProviderType = "algolia"
	ProviderTypeMeilisearch ProviderType = "meilisearch"
	ProviderTypeBleve       ProviderType = "bleve"
)

// DocumentType is the type tag stored on every wiki page document.
const DocumentType = "wiki_page"

// indexSuffix is appended to the configured index name.
const indexSuffix = "wiki_pages"

// Common errors.
var (
	ErrNotFound           = errors.New("document not found in search index")
	ErrInvalidQuery       = errors.New("invalid search query")
	ErrBackendUnavailable = errors.New("search backend unavailable")
	ErrIndexingFailed     = errors.New("failed to index document")
)

// Error wraps a backend error with the operation that failed.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
	Msg string // Additional context
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IndexName returns the wiki page index for a configured index name.
func IndexName(name string) string {
	return name + ":" + indexSuffix
}

// DocumentID returns the id of the page at path in locale.
func DocumentID(path, locale string) string {
	return path + "/" + locale + ".md"
}

// Document is a wiki page as stored in the search index.
type Document struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Locale   string           `json:"locale"`
	Path     string           `json:"path"`
	Title    string           `json:"title"`
	PageText string           `json:"page_text"`
	Page     *render.Document `json:"page"`
}

// NewDocument builds the index document for a rendered page.
func NewDocument(path, locale string, page *render.Document) *Document {
	return &Document{
		ID:       DocumentID(path, locale),
		Type:     DocumentType,
		Locale:   locale,
		Path:     path,
		Title:    page.Header.Title,
		PageText: render.PlainText(page.Output),
		Page:     page,
	}
}

// Query is a full text query over wiki pages. All terms of Text must match.
type Query struct {
	Text   string
	Locale string // Exact locale filter; empty matches every locale
	Offset int
	Limit  int
}

// Terms returns the whitespace separated terms of the query text.
func (q *Query) Terms() []string {
	return strings.Fields(q.Text)
}

// Result is a page of hits in backend order.
type Result struct {
	Hits  []*Document
	Total int
}

// PageIndex is the wiki page index.
type PageIndex interface {
	// Index adds or replaces a document.
	Index(ctx context.Context, doc *Document) error

	// Delete removes a document. Backends may return ErrNotFound when the
	// document does not exist.
	Delete(ctx context.Context, id string) error

	// GetObject returns a document by id, or ErrNotFound.
	GetObject(ctx context.Context, id string) (*Document, error)

	// Search runs a query.
	Search(ctx context.Context, query *Query) (*Result, error)

	// Clear removes every document.
	Clear(ctx context.Context) error
}

// Provider is a search backend.
type Provider interface {
	Name() string
	Healthy(ctx context.Context) error
	PageIndex() PageIndex
	Close() error
}
