package wiki

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
)

const (
	// MaxSearchLimit caps the number of hits per search page.
	MaxSearchLimit = 50
)

// SearchParams are the user-supplied search parameters. UserIDs, ForumIDs
// and TopicID are accepted and echoed back but do not affect the query.
type SearchParams struct {
	Query    string  `json:"query"`
	Limit    int     `json:"limit"`
	Page     int     `json:"page"`
	Locale   string  `json:"locale,omitempty"`
	UserIDs  []int64 `json:"user_ids"`
	ForumIDs []int64 `json:"forum_ids"`
	TopicID  *int64  `json:"topic_id"`
}

// NormalizeSearchParams trims the query and clamps paging. A zero Limit
// means unset and becomes MaxSearchLimit.
func NormalizeSearchParams(p SearchParams) SearchParams {
	p.Query = strings.TrimSpace(p.Query)
	p.Locale = strings.TrimSpace(p.Locale)

	switch {
	case p.Limit == 0, p.Limit > MaxSearchLimit:
		p.Limit = MaxSearchLimit
	case p.Limit < 1:
		p.Limit = 1
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.UserIDs == nil {
		p.UserIDs = []int64{}
	}
	if p.ForumIDs == nil {
		p.ForumIDs = []int64{}
	}
	return p
}

// Offset returns the index of the first hit of the requested page.
func (p SearchParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// SearchResults is one page of search hits.
type SearchResults struct {
	Pages  []*Page
	Total  int
	Params SearchParams
}

// Search runs a full text search over indexed pages. Hits in displayLocale
// come first unless params select a locale explicitly, in which case
// backend order is kept. An empty query returns no results without
// querying the index.
func (s *Service) Search(ctx context.Context, params SearchParams, displayLocale string) (*SearchResults, error) {
	params = NormalizeSearchParams(params)
	if displayLocale == "" {
		displayLocale = s.cfg.FallbackLocale
	}

	results := &SearchResults{Pages: []*Page{}, Params: params}
	if params.Query == "" {
		return results, nil
	}

	res, err := s.index.Search(ctx, &search.Query{
		Text:   params.Query,
		Locale: params.Locale,
		Offset: params.Offset(),
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("error searching wiki: %w", err)
	}

	var preferred, other []*Page
	for _, hit := range res.Hits {
		page, err := s.PageFromDocument(hit)
		if err != nil {
			s.logger.Warn("skipping invalid search hit", "id", hit.ID, "error", err)
			continue
		}
		if params.Locale != "" || hit.Locale == displayLocale {
			preferred = append(preferred, page)
		} else {
			other = append(other, page)
		}
	}

	results.Pages = append(append(results.Pages, preferred...), other...)
	results.Total = res.Total
	return results, nil
}
