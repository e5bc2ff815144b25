// Package algolia implements the wiki page index on Algolia.
package algolia

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/errs"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	algoliasearch "github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
)

var (
	_ search.Provider  = (*Adapter)(nil)
	_ search.PageIndex = (*pageIndex)(nil)
)

// Config contains Algolia configuration.
type Config struct {
	AppID        string `hcl:"application_id"`
	WriteAPIKey  string `hcl:"write_api_key"`
	SearchAPIKey string `hcl:"search_api_key,optional"`
	IndexName    string `hcl:"index_name,optional"` // Configured wiki index name; ":wiki_pages" is appended

	// WaitForTasks makes writes block until Algolia has applied them.
	WaitForTasks bool `hcl:"wait_for_tasks,optional"`
}

// Validate validates the Algolia configuration.
func (c *Config) Validate() error {
	if c.AppID == "" || c.WriteAPIKey == "" {
		return fmt.Errorf("algolia credentials required")
	}
	if c.IndexName == "" {
		return fmt.Errorf("algolia index_name required")
	}
	return nil
}

// Adapter implements search.Provider for Algolia.
type Adapter struct {
	client     *algoliasearch.Client
	pagesIndex *algoliasearch.Index
	waitTasks  bool
	logger     hclog.Logger
}

// NewAdapter creates a new Algolia adapter. No request is made until the
// index is used.
func NewAdapter(cfg *Config, logger hclog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	client := algoliasearch.NewClient(cfg.AppID, cfg.WriteAPIKey)
	return &Adapter{
		client:     client,
		pagesIndex: client.InitIndex(search.IndexName(cfg.IndexName)),
		waitTasks:  cfg.WaitForTasks,
		logger:     logger.Named("algolia"),
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return string(search.ProviderTypeAlgolia)
}

// Healthy checks if the search backend is accessible.
func (a *Adapter) Healthy(ctx context.Context) error {
	if _, err := a.client.ListIndices(ctx); err != nil {
		return &search.Error{Op: "Healthy", Err: search.ErrBackendUnavailable, Msg: err.Error()}
	}
	return nil
}

// ConfigureIndex makes locale filterable. Run once when provisioning.
func (a *Adapter) ConfigureIndex(ctx context.Context) error {
	res, err := a.pagesIndex.SetSettings(algoliasearch.Settings{
		AttributesForFaceting: opt.AttributesForFaceting("filterOnly(locale)", "filterOnly(type)"),
		SearchableAttributes:  opt.SearchableAttributes("title", "page_text"),
	}, ctx)
	if err != nil {
		return wrapError("Configure", "", err)
	}
	return res.Wait(ctx)
}

// PageIndex returns the wiki page index.
func (a *Adapter) PageIndex() search.PageIndex {
	return &pageIndex{adapter: a, index: a.pagesIndex}
}

// Close releases the client.
func (a *Adapter) Close() error {
	return nil
}

// record is a page as stored in Algolia, which keys objects by objectID.
type record struct {
	ObjectID string `json:"objectID"`
	search.Document
}

func toRecord(doc *search.Document) record {
	return record{ObjectID: doc.ID, Document: *doc}
}

func (r record) document() *search.Document {
	doc := r.Document
	if doc.ID == "" {
		doc.ID = r.ObjectID
	}
	return &doc
}

// pageIndex implements search.PageIndex.
type pageIndex struct {
	adapter *Adapter
	index   *algoliasearch.Index
}

// Index adds or updates a page.
func (p *pageIndex) Index(ctx context.Context, doc *search.Document) error {
	res, err := p.index.SaveObject(toRecord(doc), ctx)
	if err != nil {
		return wrapError("Index", doc.ID, err)
	}
	if p.adapter.waitTasks {
		if err := res.Wait(ctx); err != nil {
			return &search.Error{Op: "Index", Err: err, Msg: "waiting for task"}
		}
	}
	return nil
}

// Delete removes a page.
func (p *pageIndex) Delete(ctx context.Context, id string) error {
	res, err := p.index.DeleteObject(id, ctx)
	if err != nil {
		return wrapError("Delete", id, err)
	}
	if p.adapter.waitTasks {
		if err := res.Wait(ctx); err != nil {
			return &search.Error{Op: "Delete", Err: err, Msg: "waiting for task"}
		}
	}
	return nil
}

// GetObject retrieves a page by id.
func (p *pageIndex) GetObject(ctx context.Context, id string) (*search.Document, error) {
	var r record
	if err := p.index.GetObject(id, &r, ctx); err != nil {
		return nil, wrapError("GetObject", id, err)
	}
	return r.document(), nil
}

// Search performs a search query.
func (p *pageIndex) Search(ctx context.Context, q *search.Query) (*search.Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, &search.Error{Op: "Search", Err: search.ErrInvalidQuery, Msg: "empty query"}
	}

	opts := []interface{}{
		ctx,
		opt.Offset(q.Offset),
		opt.Length(q.Limit),
	}
	if filter := buildLocaleFilter(q.Locale); filter != "" {
		opts = append(opts, opt.Filters(filter))
	}

	res, err := p.index.Search(q.Text, opts...)
	if err != nil {
		return nil, wrapError("Search", "", err)
	}

	var records []record
	if err := res.UnmarshalHits(&records); err != nil {
		return nil, &search.Error{Op: "Search", Err: err, Msg: "decoding hits"}
	}

	hits := make([]*search.Document, 0, len(records))
	for _, r := range records {
		hits = append(hits, r.document())
	}
	return &search.Result{Hits: hits, Total: res.NbHits}, nil
}

// Clear removes every page.
func (p *pageIndex) Clear(ctx context.Context) error {
	res, err := p.index.ClearObjects(ctx)
	if err != nil {
		return wrapError("Clear", "", err)
	}
	return res.Wait(ctx)
}

// buildLocaleFilter builds an exact match filter on locale.
func buildLocaleFilter(locale string) string {
	if locale == "" {
		return ""
	}
	return fmt.Sprintf("locale:%q", locale)
}

func wrapError(op, id string, err error) error {
	_, notFound := errs.IsAlgoliaErrWithCode(err, http.StatusNotFound)
	_, badRequest := errs.IsAlgoliaErrWithCode(err, http.StatusBadRequest)
	switch {
	case notFound:
		return &search.Error{Op: op, Err: search.ErrNotFound, Msg: id}
	case badRequest:
		return &search.Error{Op: op, Err: search.ErrInvalidQuery, Msg: err.Error()}
	}
	return &search.Error{Op: op, Err: err, Msg: id}
}
