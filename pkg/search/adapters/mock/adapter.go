// Package mock provides an in-memory search provider for testing.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
)

var (
	_ search.Provider  = (*Adapter)(nil)
	_ search.PageIndex = (*PageIndex)(nil)
)

// Adapter is a fake search provider.
type Adapter struct {
	index *PageIndex
}

// NewAdapter creates an empty fake provider.
func NewAdapter() *Adapter {
	return &Adapter{index: NewPageIndex()}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "mock"
}

// Healthy always succeeds.
func (a *Adapter) Healthy(context.Context) error {
	return nil
}

// PageIndex returns the fake page index.
func (a *Adapter) PageIndex() search.PageIndex {
	return a.index
}

// Pages returns the concrete fake index for assertions.
func (a *Adapter) Pages() *PageIndex {
	return a.index
}

// Close does nothing.
func (a *Adapter) Close() error {
	return nil
}

// PageIndex is a fake search.PageIndex. Documents are returned in insertion
// order; a re-indexed document keeps its original position.
type PageIndex struct {
	mu sync.Mutex

	// Documents stores indexed documents by id.
	Documents map[string]*search.Document

	// IndexCalls and DeleteCalls record the ids passed to Index and Delete.
	IndexCalls  []string
	DeleteCalls []string

	// Queries records every query passed to Search.
	Queries []search.Query

	// Err, if set, is returned by every operation.
	Err error

	// SearchResult, if set, is returned by Search instead of matching.
	SearchResult *search.Result

	order []string
}

// NewPageIndex creates an empty fake index.
func NewPageIndex() *PageIndex {
	return &PageIndex{Documents: make(map[string]*search.Document)}
}

// Index stores the document.
func (p *PageIndex) Index(_ context.Context, doc *search.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.IndexCalls = append(p.IndexCalls, doc.ID)
	if p.Err != nil {
		return &search.Error{Op: "Index", Err: p.Err}
	}
	if _, ok := p.Documents[doc.ID]; !ok {
		p.order = append(p.order, doc.ID)
	}
	p.Documents[doc.ID] = doc
	return nil
}

// Delete removes the document, returning ErrNotFound when it is absent.
func (p *PageIndex) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.DeleteCalls = append(p.DeleteCalls, id)
	if p.Err != nil {
		return &search.Error{Op: "Delete", Err: p.Err}
	}
	if _, ok := p.Documents[id]; !ok {
		return &search.Error{Op: "Delete", Err: search.ErrNotFound, Msg: id}
	}
	delete(p.Documents, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetObject returns a stored document.
func (p *PageIndex) GetObject(_ context.Context, id string) (*search.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, &search.Error{Op: "GetObject", Err: p.Err}
	}
	doc, ok := p.Documents[id]
	if !ok {
		return nil, &search.Error{Op: "GetObject", Err: search.ErrNotFound, Msg: id}
	}
	return doc, nil
}

// Search matches documents whose title or text contain every query term,
// case-insensitively.
func (p *PageIndex) Search(_ context.Context, q *search.Query) (*search.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Queries = append(p.Queries, *q)
	if p.Err != nil {
		return nil, &search.Error{Op: "Search", Err: p.Err}
	}
	if p.SearchResult != nil {
		return p.SearchResult, nil
	}

	var matched []*search.Document
	for _, id := range p.order {
		doc := p.Documents[id]
		if q.Locale != "" && doc.Locale != q.Locale {
			continue
		}
		if matchesAll(doc, q.Terms()) {
			matched = append(matched, doc)
		}
	}

	result := &search.Result{Total: len(matched)}
	if q.Offset < len(matched) {
		end := len(matched)
		if q.Limit > 0 && q.Offset+q.Limit < end {
			end = q.Offset + q.Limit
		}
		result.Hits = matched[q.Offset:end]
	}
	return result, nil
}

// Clear removes every document.
func (p *PageIndex) Clear(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return &search.Error{Op: "Clear", Err: p.Err}
	}
	p.Documents = make(map[string]*search.Document)
	p.order = nil
	return nil
}

// IDs returns the ids of the stored documents, sorted.
func (p *PageIndex) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.Documents))
	for id := range p.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func matchesAll(doc *search.Document, terms []string) bool {
	haystack := strings.ToLower(doc.Title + " " + doc.PageText)
	for _, term := range terms {
		if !strings.Contains(haystack, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
