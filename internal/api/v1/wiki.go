package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/hashicorp-forge/hermes-wiki/internal/server"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

// WikiPageResponse is a resolved wiki page.
type WikiPageResponse struct {
	Path              string         `json:"path"`
	Locale            string         `json:"locale"`
	RequestedLocale   string         `json:"requestedLocale"`
	AvailableLocales  []string       `json:"availableLocales"`
	Title             string         `json:"title"`
	Subtitle          string         `json:"subtitle,omitempty"`
	TitleWithSubtitle string         `json:"titleWithSubtitle"`
	Output            string         `json:"output"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	EditURL           string         `json:"editUrl"`
	Missing           bool           `json:"missing"`
}

// WikiPageHandler serves wiki pages.
//
// Endpoint: GET /api/v1/wiki/{path}?locale={locale}
//
// Without a locale parameter the Accept-Language header picks the locale.
// Pages without content in any candidate locale are returned with status
// 404 and the missing title.
func WikiPageHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path, err := parseWikiPathFromURL(r.URL.Path, "wiki")
		if err != nil {
			http.Error(w, "Wiki path is required", http.StatusBadRequest)
			return
		}

		page, err := srv.Wiki.Page(path, requestLocale(r))
		if errors.Is(err, wiki.ErrInvalidPath) {
			http.Error(w, "Invalid wiki path", http.StatusBadRequest)
			return
		} else if errors.Is(err, wiki.ErrInvalidLocale) {
			http.Error(w, "Invalid locale", http.StatusBadRequest)
			return
		} else if err != nil {
			srv.Logger.Error("error creating page", "error", err, "path", path)
			http.Error(w, "Error loading page", http.StatusInternalServerError)
			return
		}

		resp, err := pageResponse(r.Context(), page)
		if err != nil {
			srv.Logger.Error("error resolving page",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
			)
			http.Error(w, "Error loading page", http.StatusBadGateway)
			return
		}

		status := http.StatusOK
		if resp.Missing {
			status = http.StatusNotFound
		}
		respondJSON(srv, w, r, status, resp)
	})
}

func pageResponse(ctx context.Context, page *wiki.Page) (*WikiPageResponse, error) {
	resolved, err := page.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	locales, err := page.Locales(ctx)
	if err != nil {
		return nil, err
	}

	resp := &WikiPageResponse{
		Path:             page.Path(),
		Locale:           page.Locale(),
		RequestedLocale:  page.RequestedLocale(),
		AvailableLocales: locales,
		EditURL:          page.EditURL(),
		Missing:          resolved == nil,
	}
	// Resolve is memoized, so the accessors below do not fetch again.
	if resp.Title, err = page.Title(ctx, false); err != nil {
		return nil, err
	}
	if resp.TitleWithSubtitle, err = page.Title(ctx, true); err != nil {
		return nil, err
	}
	if resp.Subtitle, err = page.Subtitle(ctx); err != nil {
		return nil, err
	}
	if resp.Output, err = page.Body(ctx); err != nil {
		return nil, err
	}
	if resp.Metadata, err = page.Metadata(ctx); err != nil {
		return nil, err
	}
	return resp, nil
}
