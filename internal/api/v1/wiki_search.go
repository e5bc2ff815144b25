package api

import (
	"net/http"

	"github.com/hashicorp-forge/hermes-wiki/internal/server"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

// WikiSearchResponse is a page of wiki search results.
type WikiSearchResponse struct {
	Data   []WikiSearchResult `json:"data"`
	Total  int                `json:"total"`
	Params wiki.SearchParams  `json:"params"`
}

// WikiSearchResult is a single wiki search hit.
type WikiSearchResult struct {
	Path     string `json:"path"`
	Locale   string `json:"locale"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	EditURL  string `json:"editUrl"`
}

// WikiSearchHandler searches wiki pages.
//
// Endpoint: GET /api/v1/wiki-search?query=&limit=&page=&locale=
//
// Hits in the request language (Accept-Language) are listed first unless a
// locale filter is given.
func WikiSearchHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		params := wiki.SearchParams{
			Query:    q.Get("query"),
			Limit:    intParam(q, "limit"),
			Page:     intParam(q, "page"),
			Locale:   q.Get("locale"),
			UserIDs:  intList(q, "user_ids"),
			ForumIDs: intList(q, "forum_ids"),
			TopicID:  optionalInt(q, "topic_id"),
		}

		if params.Locale != "" && !wiki.ValidLocale(params.Locale) {
			http.Error(w, "Invalid locale", http.StatusBadRequest)
			return
		}

		results, err := srv.Wiki.Search(r.Context(), params, acceptLanguage(r))
		if err != nil {
			srv.Logger.Error("error searching wiki",
				"error", err,
				"query", params.Query,
				"method", r.Method,
				"path", r.URL.Path,
			)
			http.Error(w, "Error searching wiki", http.StatusBadGateway)
			return
		}

		resp := WikiSearchResponse{
			Data:   make([]WikiSearchResult, 0, len(results.Pages)),
			Total:  results.Total,
			Params: results.Params,
		}
		for _, p := range results.Pages {
			// Preloaded from the index; these do not fetch.
			title, err := p.Title(r.Context(), false)
			if err != nil {
				srv.Logger.Warn("error reading search hit", "error", err, "page", p.PagePath())
				continue
			}
			subtitle, _ := p.Subtitle(r.Context())
			resp.Data = append(resp.Data, WikiSearchResult{
				Path:     p.Path(),
				Locale:   p.Locale(),
				Title:    title,
				Subtitle: subtitle,
				EditURL:  p.EditURL(),
			})
		}

		respondJSON(srv, w, r, http.StatusOK, resp)
	})
}
