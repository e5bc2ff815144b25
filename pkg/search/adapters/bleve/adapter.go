package bleve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"

	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
)

var (
	_ search.Provider  = (*Adapter)(nil)
	_ search.PageIndex = (*pageIndex)(nil)
)

// Adapter implements search.Provider for Bleve (embedded full-text search).
type Adapter struct {
	mu        sync.RWMutex
	pages     bleve.Index
	pagesPath string // empty for in-memory indexes
	logger    hclog.Logger
}

// Config contains Bleve configuration.
type Config struct {
	IndexPath string `hcl:"index_path,optional"` // Base path for the index (e.g., "./data/wiki.index")
	IndexName string `hcl:"index_name,optional"` // Configured wiki index name; ":wiki_pages" is appended
	InMemory  bool   `hcl:"in_memory,optional"`  // Keep the index in memory only
}

var invalidFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// indexFile returns the directory name of the on-disk index for a wiki
// index name, e.g. "osu_wiki_pages.bleve".
func indexFile(name string) string {
	return invalidFileChars.ReplaceAllString(search.IndexName(name), "_") + ".bleve"
}

// NewAdapter creates a new Bleve search adapter.
func NewAdapter(cfg *Config, logger hclog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	adapter := &Adapter{logger: logger.Named("bleve")}

	if cfg.InMemory {
		idx, err := bleve.NewMemOnly(createPageMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		adapter.pages = idx
		return adapter, nil
	}

	if cfg.IndexPath == "" {
		return nil, fmt.Errorf("bleve index path required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("bleve index name required")
	}
	if err := os.MkdirAll(cfg.IndexPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	adapter.pagesPath = filepath.Join(cfg.IndexPath, indexFile(cfg.IndexName))
	idx, err := openOrCreateIndex(adapter.pagesPath, createPageMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to open pages index: %w", err)
	}
	adapter.pages = idx
	return adapter, nil
}

// openOrCreateIndex opens an existing Bleve index or creates a new one.
func openOrCreateIndex(path string, indexMapping mapping.IndexMapping) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return bleve.New(path, indexMapping)
	}
	return idx, err
}

// storedPage is the shape written to Bleve. The full document is kept as
// stored JSON in source so hits can be rebuilt without the original page.
type storedPage struct {
	Type     string `json:"type"`
	Locale   string `json:"locale"`
	Path     string `json:"path"`
	Title    string `json:"title"`
	PageText string `json:"page_text"`
	Source   string `json:"source"`
}

// storedFields is decoded from the fields Bleve returns with a hit.
type storedFields struct {
	Source string `mapstructure:"source"`
}

// createPageMapping creates the index mapping for wiki pages.
func createPageMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	// Pages come in many languages; no stemming.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "standard"

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.IncludeInAll = false

	sourceFieldMapping := bleve.NewTextFieldMapping()
	sourceFieldMapping.Index = false
	sourceFieldMapping.Store = true
	sourceFieldMapping.IncludeInAll = false
	sourceFieldMapping.IncludeTermVectors = false

	pageMapping := bleve.NewDocumentMapping()

	// Searchable text fields
	pageMapping.AddFieldMappingsAt("title", textFieldMapping)
	pageMapping.AddFieldMappingsAt("page_text", textFieldMapping)

	// Keyword fields for exact matching
	pageMapping.AddFieldMappingsAt("type", keywordFieldMapping)
	pageMapping.AddFieldMappingsAt("locale", keywordFieldMapping)
	pageMapping.AddFieldMappingsAt("path", keywordFieldMapping)

	pageMapping.AddFieldMappingsAt("source", sourceFieldMapping)

	indexMapping.AddDocumentMapping("_default", pageMapping)

	return indexMapping
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return string(search.ProviderTypeBleve)
}

// Healthy checks if the search backend is accessible.
func (a *Adapter) Healthy(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.pages == nil {
		return fmt.Errorf("pages index is not initialized")
	}
	if _, err := a.pages.DocCount(); err != nil {
		return fmt.Errorf("pages index unhealthy: %w", err)
	}
	return nil
}

// PageIndex returns the wiki page index.
func (a *Adapter) PageIndex() search.PageIndex {
	return &pageIndex{adapter: a}
}

// Close closes the Bleve index.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.pages.Close(); err != nil {
		return fmt.Errorf("failed to close pages index: %w", err)
	}
	return nil
}

// pageIndex implements search.PageIndex.
type pageIndex struct {
	adapter *Adapter
}

func (p *pageIndex) index() bleve.Index {
	p.adapter.mu.RLock()
	defer p.adapter.mu.RUnlock()
	return p.adapter.pages
}

// Index adds or updates a page in the search index.
func (p *pageIndex) Index(ctx context.Context, doc *search.Document) error {
	source, err := json.Marshal(doc)
	if err != nil {
		return &search.Error{Op: "Index", Err: search.ErrIndexingFailed, Msg: err.Error()}
	}

	stored := storedPage{
		Type:     doc.Type,
		Locale:   doc.Locale,
		Path:     doc.Path,
		Title:    doc.Title,
		PageText: doc.PageText,
		Source:   string(source),
	}
	if err := p.index().Index(doc.ID, stored); err != nil {
		return &search.Error{Op: "Index", Err: err, Msg: doc.ID}
	}
	return nil
}

// Delete removes a page from the search index. Deleting an unknown id is a
// no-op in Bleve.
func (p *pageIndex) Delete(ctx context.Context, id string) error {
	if err := p.index().Delete(id); err != nil {
		return &search.Error{Op: "Delete", Err: err, Msg: id}
	}
	return nil
}

// GetObject retrieves a single page by ID from the search index.
func (p *pageIndex) GetObject(ctx context.Context, id string) (*search.Document, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Fields = []string{"source"}

	res, err := p.index().SearchInContext(ctx, req)
	if err != nil {
		return nil, &search.Error{Op: "GetObject", Err: err, Msg: id}
	}
	if len(res.Hits) == 0 {
		return nil, &search.Error{Op: "GetObject", Err: search.ErrNotFound, Msg: id}
	}
	return decodeHit(res.Hits[0].Fields)
}

// Search performs a search query.
func (p *pageIndex) Search(ctx context.Context, q *search.Query) (*search.Result, error) {
	terms := q.Terms()
	if len(terms) == 0 {
		return nil, &search.Error{Op: "Search", Err: search.ErrInvalidQuery, Msg: "empty query"}
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), q.Limit, q.Offset, false)
	req.Fields = []string{"source"}

	res, err := p.index().SearchInContext(ctx, req)
	if err != nil {
		return nil, &search.Error{Op: "Search", Err: err}
	}

	result := &search.Result{
		Hits:  make([]*search.Document, 0, len(res.Hits)),
		Total: int(res.Total),
	}
	for _, hit := range res.Hits {
		doc, err := decodeHit(hit.Fields)
		if err != nil {
			return nil, err
		}
		result.Hits = append(result.Hits, doc)
	}
	return result, nil
}

// buildQuery requires every term to match and filters on locale.
func buildQuery(q *search.Query) query.Query {
	match := bleve.NewMatchQuery(q.Text)
	match.SetOperator(query.MatchQueryOperatorAnd)

	if q.Locale == "" {
		return match
	}

	locale := bleve.NewTermQuery(q.Locale)
	locale.SetField("locale")
	return bleve.NewConjunctionQuery(match, locale)
}

func decodeHit(fields map[string]interface{}) (*search.Document, error) {
	var stored storedFields
	if err := mapstructure.Decode(fields, &stored); err != nil {
		return nil, &search.Error{Op: "Decode", Err: err}
	}
	if stored.Source == "" {
		return nil, &search.Error{Op: "Decode", Err: search.ErrNotFound, Msg: "hit has no stored source"}
	}

	var doc search.Document
	if err := json.Unmarshal([]byte(stored.Source), &doc); err != nil {
		return nil, &search.Error{Op: "Decode", Err: err}
	}
	return &doc, nil
}

// Clear removes all documents from the index.
func (p *pageIndex) Clear(ctx context.Context) error {
	a := p.adapter
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.pages.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	var (
		newIndex bleve.Index
		err      error
	)
	if a.pagesPath == "" {
		newIndex, err = bleve.NewMemOnly(createPageMapping())
	} else {
		if err := os.RemoveAll(a.pagesPath); err != nil {
			return fmt.Errorf("failed to remove index: %w", err)
		}
		newIndex, err = bleve.New(a.pagesPath, createPageMapping())
	}
	if err != nil {
		return fmt.Errorf("failed to recreate index: %w", err)
	}

	a.pages = newIndex
	a.logger.Info("cleared pages index")
	return nil
}
