// Package meilisearch implements the wiki page index on Meilisearch.
package meilisearch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/meilisearch/meilisearch-go"

	"github.com/hashicorp-forge/hermes-wiki/pkg/render"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
)

// taskPollInterval is how often task completion is polled.
const taskPollInterval = 50 * time.Millisecond

// primaryKey holds the encoded page id. Meilisearch ids only allow
// [A-Za-z0-9_-], so ids like "Beatmap/en.md" are kept in page_id.
const primaryKey = "id"

var invalidUIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

var (
	_ search.Provider  = (*Adapter)(nil)
	_ search.PageIndex = (*pageIndex)(nil)
)

// Config contains Meilisearch configuration.
type Config struct {
	Host      string `hcl:"host"`
	APIKey    string `hcl:"api_key,optional"`
	IndexName string `hcl:"index_name,optional"` // Configured wiki index name; ":wiki_pages" is appended

	// AsyncWrites returns from writes once Meilisearch has enqueued them
	// instead of waiting for the task to finish. Failed tasks go unreported.
	AsyncWrites bool `hcl:"async_writes,optional"`
}

// Validate validates the Meilisearch configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("meilisearch host required")
	}
	if c.IndexName == "" {
		return fmt.Errorf("meilisearch index_name required")
	}
	return nil
}

// Adapter implements search.Provider for Meilisearch.
type Adapter struct {
	client    meilisearch.ServiceManager
	pagesUID  string
	waitTasks bool
	logger    hclog.Logger
}

// NewAdapter creates a new Meilisearch adapter and verifies the server is
// reachable.
func NewAdapter(cfg *Config, logger hclog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))
	adapter := &Adapter{
		client:    client,
		pagesUID:  indexUID(search.IndexName(cfg.IndexName)),
		waitTasks: !cfg.AsyncWrites,
		logger:    logger.Named("meilisearch"),
	}

	ctx := context.Background()
	if err := adapter.Healthy(ctx); err != nil {
		return nil, err
	}
	if err := adapter.configureIndex(ctx); err != nil {
		return nil, err
	}
	return adapter, nil
}

// indexUID maps an index name onto the characters Meilisearch accepts.
func indexUID(name string) string {
	return invalidUIDChars.ReplaceAllString(name, "_")
}

// configureIndex makes locale and type filterable.
func (a *Adapter) configureIndex(ctx context.Context) error {
	attrs := []interface{}{"locale", "type"}
	task, err := a.client.Index(a.pagesUID).UpdateFilterableAttributesWithContext(ctx, &attrs)
	if err != nil {
		return &search.Error{Op: "Configure", Err: err, Msg: a.pagesUID}
	}
	return a.wait(ctx, "Configure", task)
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return string(search.ProviderTypeMeilisearch)
}

// Healthy checks if the search backend is accessible.
func (a *Adapter) Healthy(ctx context.Context) error {
	health, err := a.client.HealthWithContext(ctx)
	if err != nil {
		return &search.Error{Op: "Healthy", Err: search.ErrBackendUnavailable, Msg: err.Error()}
	}
	if health.Status != "available" {
		return &search.Error{Op: "Healthy", Err: search.ErrBackendUnavailable, Msg: "status " + health.Status}
	}
	return nil
}

// PageIndex returns the wiki page index.
func (a *Adapter) PageIndex() search.PageIndex {
	return &pageIndex{adapter: a, index: a.client.Index(a.pagesUID)}
}

// Close releases the client.
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) wait(ctx context.Context, op string, task *meilisearch.TaskInfo) error {
	if !a.waitTasks || task == nil {
		return nil
	}
	done, err := a.client.WaitForTaskWithContext(ctx, task.TaskUID, taskPollInterval)
	if err != nil {
		return &search.Error{Op: op, Err: err, Msg: "waiting for task"}
	}
	if done.Status == meilisearch.TaskStatusFailed {
		return &search.Error{Op: op, Err: search.ErrIndexingFailed, Msg: done.Error.Message}
	}
	return nil
}

// encodeID maps a page id onto a valid Meilisearch document id.
func encodeID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// record is the stored form of a search.Document.
type record struct {
	Key      string           `json:"id"`
	PageID   string           `json:"page_id"`
	Type     string           `json:"type"`
	Locale   string           `json:"locale"`
	Path     string           `json:"path"`
	Title    string           `json:"title"`
	PageText string           `json:"page_text"`
	Page     *render.Document `json:"page"`
}

func toRecord(doc *search.Document) record {
	return record{
		Key:      encodeID(doc.ID),
		PageID:   doc.ID,
		Type:     doc.Type,
		Locale:   doc.Locale,
		Path:     doc.Path,
		Title:    doc.Title,
		PageText: doc.PageText,
		Page:     doc.Page,
	}
}

func (r record) document() *search.Document {
	return &search.Document{
		ID:       r.PageID,
		Type:     r.Type,
		Locale:   r.Locale,
		Path:     r.Path,
		Title:    r.Title,
		PageText: r.PageText,
		Page:     r.Page,
	}
}

// pageIndex implements search.PageIndex.
type pageIndex struct {
	adapter *Adapter
	index   meilisearch.IndexManager
}

// Index adds or updates a page.
func (p *pageIndex) Index(ctx context.Context, doc *search.Document) error {
	key := primaryKey
	task, err := p.index.AddDocumentsWithContext(ctx, []record{toRecord(doc)}, &key)
	if err != nil {
		return &search.Error{Op: "Index", Err: err, Msg: doc.ID}
	}
	return p.adapter.wait(ctx, "Index", task)
}

// Delete removes a page.
func (p *pageIndex) Delete(ctx context.Context, id string) error {
	task, err := p.index.DeleteDocumentWithContext(ctx, encodeID(id))
	if err != nil {
		return wrapError("Delete", id, err)
	}
	return p.adapter.wait(ctx, "Delete", task)
}

// GetObject retrieves a page by id.
func (p *pageIndex) GetObject(ctx context.Context, id string) (*search.Document, error) {
	var rec record
	if err := p.index.GetDocumentWithContext(ctx, encodeID(id), nil, &rec); err != nil {
		return nil, wrapError("GetObject", id, err)
	}
	return rec.document(), nil
}

// searchResponse is the subset of the search response the wiki uses.
type searchResponse struct {
	Hits               []record `json:"hits"`
	EstimatedTotalHits int      `json:"estimatedTotalHits"`
	TotalHits          int      `json:"totalHits"`
}

// Search performs a search query.
func (p *pageIndex) Search(ctx context.Context, q *search.Query) (*search.Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, &search.Error{Op: "Search", Err: search.ErrInvalidQuery, Msg: "empty query"}
	}

	req := &meilisearch.SearchRequest{
		Offset:           int64(q.Offset),
		Limit:            int64(q.Limit),
		MatchingStrategy: "all",
	}
	if filter := buildLocaleFilter(q.Locale); filter != "" {
		req.Filter = filter
	}

	raw, err := p.index.SearchRawWithContext(ctx, q.Text, req)
	if err != nil {
		return nil, wrapError("Search", "", err)
	}
	return decodeSearchResponse(*raw)
}

func decodeSearchResponse(raw []byte) (*search.Result, error) {
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &search.Error{Op: "Search", Err: err, Msg: "decoding response"}
	}

	total := resp.EstimatedTotalHits
	if resp.TotalHits > total {
		total = resp.TotalHits
	}
	hits := make([]*search.Document, 0, len(resp.Hits))
	for _, rec := range resp.Hits {
		hits = append(hits, rec.document())
	}
	return &search.Result{Hits: hits, Total: total}, nil
}

// Clear removes every page.
func (p *pageIndex) Clear(ctx context.Context) error {
	task, err := p.index.DeleteAllDocumentsWithContext(ctx)
	if err != nil {
		return wrapError("Clear", "", err)
	}
	return p.adapter.wait(ctx, "Clear", task)
}

// buildLocaleFilter builds an exact match filter on locale.
func buildLocaleFilter(locale string) string {
	if locale == "" {
		return ""
	}
	escaped := strings.ReplaceAll(locale, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return fmt.Sprintf(`locale = "%s"`, escaped)
}

func wrapError(op, id string, err error) error {
	var meiliErr *meilisearch.Error
	if errors.As(err, &meiliErr) {
		switch {
		case meiliErr.StatusCode == http.StatusNotFound:
			return &search.Error{Op: op, Err: search.ErrNotFound, Msg: id}
		case meiliErr.StatusCode == http.StatusBadRequest:
			return &search.Error{Op: op, Err: search.ErrInvalidQuery, Msg: err.Error()}
		case meiliErr.StatusCode == 0 || meiliErr.StatusCode >= http.StatusInternalServerError:
			return &search.Error{Op: op, Err: search.ErrBackendUnavailable, Msg: err.Error()}
		}
	}
	return &search.Error{Op: op, Err: err, Msg: id}
}
