package meilisearch

import (
	"errors"
	"testing"

	"github.com/meilisearch/meilisearch-go"

	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
)

// TestNewAdapter tests adapter creation validation only.
// Note: This test validates configuration, not actual Meilisearch connection.
func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "unreachable server",
			cfg: &Config{
				Host:      "http://127.0.0.1:1",
				APIKey:    "masterKey123",
				IndexName: "osu",
			},
			wantErr: true, // Will fail without real Meilisearch, which is expected
		},
		{
			name: "missing host",
			cfg: &Config{
				APIKey:    "masterKey123",
				IndexName: "osu",
			},
			wantErr: true,
		},
		{
			name: "missing index name",
			cfg: &Config{
				Host: "http://localhost:7700",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewAdapter(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAdapter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && adapter == nil {
				t.Error("NewAdapter() returned nil adapter")
			}
		})
	}
}

func TestNewAdapter_UnreachableIsBackendUnavailable(t *testing.T) {
	_, err := NewAdapter(&Config{Host: "http://127.0.0.1:1", IndexName: "osu"}, nil)
	if !errors.Is(err, search.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

// TestAdapter_Name tests the Name() method
func TestAdapter_Name(t *testing.T) {
	// Create adapter struct without calling NewAdapter (avoid connection)
	adapter := &Adapter{pagesUID: "osu_wiki_pages"}

	if got := adapter.Name(); got != "meilisearch" {
		t.Errorf("Name() = %v, want %v", got, "meilisearch")
	}
}

func TestIndexUID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "colon", in: "osu:wiki_pages", want: "osu_wiki_pages"},
		{name: "already valid", in: "osu-wiki_pages", want: "osu-wiki_pages"},
		{name: "dots and spaces", in: "osu.prod wiki", want: "osu_prod_wiki"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := indexUID(tt.in); got != tt.want {
				t.Errorf("indexUID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildLocaleFilter(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		want   string
	}{
		{name: "empty", locale: "", want: ""},
		{name: "simple", locale: "en", want: `locale = "en"`},
		{name: "region", locale: "pt-br", want: `locale = "pt-br"`},
		{name: "quotes escaped", locale: `e"n`, want: `locale = "e\"n"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildLocaleFilter(tt.locale); got != tt.want {
				t.Errorf("buildLocaleFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeSearchResponse(t *testing.T) {
	raw := []byte(`{
		"hits": [
			{"id": "QmVhdG1hcC9lbi5tZA", "page_id": "Beatmap/en.md", "type": "wiki_page", "locale": "en", "path": "Beatmap", "title": "Beatmap",
			 "page": {"header": {"title": "Beatmap"}, "output": "<p>x</p>"}}
		],
		"estimatedTotalHits": 7,
		"offset": 0,
		"limit": 1
	}`)

	res, err := decodeSearchResponse(raw)
	if err != nil {
		t.Fatalf("decodeSearchResponse() error = %v", err)
	}
	if res.Total != 7 {
		t.Errorf("Total = %d, want 7", res.Total)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "Beatmap/en.md" {
		t.Fatalf("unexpected hits %+v", res.Hits)
	}
	if res.Hits[0].Page == nil || res.Hits[0].Page.Output != "<p>x</p>" {
		t.Errorf("page payload not decoded: %+v", res.Hits[0].Page)
	}

	empty, err := decodeSearchResponse([]byte(`{"hits": [], "totalHits": 0}`))
	if err != nil {
		t.Fatalf("decodeSearchResponse() error = %v", err)
	}
	if empty.Hits == nil || len(empty.Hits) != 0 {
		t.Errorf("expected empty, non-nil hits")
	}

	if _, err := decodeSearchResponse([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestWrapError(t *testing.T) {
	err := wrapError("Delete", "Beatmap/en.md", &meilisearchError404)
	if !errors.Is(err, search.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	plain := errors.New("boom")
	err = wrapError("Search", "", plain)
	if !errors.Is(err, plain) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

var meilisearchError404 = meilisearch.Error{StatusCode: 404}
