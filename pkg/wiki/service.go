package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp-forge/hermes-wiki/pkg/cache"
	"github.com/hashicorp-forge/hermes-wiki/pkg/content"
	"github.com/hashicorp-forge/hermes-wiki/pkg/render"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
	"github.com/hashicorp/go-hclog"
)

// emptyMarker is cached for pages without content. It is distinct from an
// absent key, which means the page was never resolved.
var emptyMarker = []byte("{}")

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Store    content.Store
	Renderer render.Renderer
	Cache    *cache.Cache
	Index    search.PageIndex
	Logger   hclog.Logger
}

// Service resolves wiki pages. It is safe for concurrent use; the Pages it
// returns are not.
type Service struct {
	cfg      Config
	store    content.Store
	renderer render.Renderer
	cache    *cache.Cache
	index    search.PageIndex
	ttl      time.Duration
	logger   hclog.Logger
}

// NewService creates a Service. cfg is validated after defaults are applied.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Store == nil:
		return nil, errors.New("content store is required")
	case deps.Renderer == nil:
		return nil, errors.New("renderer is required")
	case deps.Cache == nil:
		return nil, errors.New("cache is required")
	case deps.Index == nil:
		return nil, errors.New("search index is required")
	}
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}

	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		renderer: deps.Renderer,
		cache:    deps.Cache,
		index:    deps.Index,
		ttl:      cfg.CacheTTL(),
		logger:   deps.Logger.Named("wiki"),
	}, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Page returns a resolver for path in locale. Nothing is fetched until the
// page is first read. An empty locale means the fallback locale.
func (s *Service) Page(path, locale string) (*Page, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = s.cfg.FallbackLocale
	}
	if !ValidLocale(locale) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}
	return newPage(s, clean, locale), nil
}

// PageFromDocument returns a page preloaded with a search index payload.
// Resolving it does not touch the cache or the content store.
func (s *Service) PageFromDocument(doc *search.Document) (*Page, error) {
	clean, err := CleanPath(doc.Path)
	if err != nil {
		return nil, err
	}
	if !ValidLocale(doc.Locale) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocale, doc.Locale)
	}
	p := newPage(s, clean, doc.Locale)
	p.loaded = true
	if doc.Page != nil {
		p.resolved = &Resolved{Locale: doc.Locale, Document: doc.Page}
	}
	return p, nil
}

// document returns the cached rendering of path in locale, computing it on
// a miss. A nil document means the page has no content in that locale.
func (s *Service) document(ctx context.Context, path, locale string) (*render.Document, error) {
	key := ContentKey(s.renderer.Version(), path, locale)
	raw, err := s.cache.Remember(ctx, key, s.ttl, func(ctx context.Context) ([]byte, error) {
		return s.compute(ctx, path, locale)
	})
	if err != nil {
		return nil, err
	}
	return decodeDocument(raw)
}

// compute fetches and renders a page and brings the search index in line
// with the outcome.
func (s *Service) compute(ctx context.Context, path, locale string) ([]byte, error) {
	storagePath := StoragePath(path, locale)
	src, err := s.store.FetchContent(ctx, storagePath)
	if err != nil {
		if !content.IsMissing(err) {
			return nil, fmt.Errorf("error fetching %s from %s: %w", storagePath, s.store.Name(), err)
		}
		s.logger.Debug("page content missing", "path", path, "locale", locale, "reason", err)
		src = nil
	}

	id := search.DocumentID(path, locale)
	if len(bytes.TrimSpace(src)) == 0 {
		if err := s.index.Delete(ctx, id); err != nil && !errors.Is(err, search.ErrNotFound) {
			return nil, fmt.Errorf("error removing %s from search index: %w", id, err)
		}
		return emptyMarker, nil
	}

	doc, err := s.renderer.Render(ctx, src, render.Context{
		Path:   s.cfg.LinkBase + "/" + path,
		Locale: locale,
	})
	if err != nil {
		return nil, fmt.Errorf("error rendering %s: %w", storagePath, err)
	}

	indexDoc := search.NewDocument(path, locale, doc)
	if indexDoc.Title == "" {
		indexDoc.Title, _ = defaultTitles(path)
	}
	if err := s.index.Index(ctx, indexDoc); err != nil {
		return nil, fmt.Errorf("error indexing %s: %w", id, err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding %s: %w", storagePath, err)
	}
	s.logger.Info("rendered page", "path", path, "locale", locale, "bytes", len(out))
	return out, nil
}

// decodeDocument reverses compute. The empty marker decodes to nil.
func decodeDocument(raw []byte) (*render.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, emptyMarker) {
		return nil, nil
	}
	var doc render.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("error decoding cached page: %w", err)
	}
	return &doc, nil
}

// locales returns the cached locale listing of path.
func (s *Service) locales(ctx context.Context, path string) ([]string, error) {
	raw, err := s.cache.Remember(ctx, LocalesKey(path), s.ttl, func(ctx context.Context) ([]byte, error) {
		locales, err := s.fetchLocales(ctx, path)
		if err != nil {
			return nil, err
		}
		return json.Marshal(locales)
	})
	if err != nil {
		return nil, err
	}

	locales := []string{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return locales, nil
	}
	if err := json.Unmarshal(raw, &locales); err != nil {
		return nil, fmt.Errorf("error decoding cached locales of %s: %w", path, err)
	}
	return locales, nil
}

func (s *Service) fetchLocales(ctx context.Context, path string) ([]string, error) {
	locales := []string{}

	entries, err := s.store.List(ctx, "wiki/"+path)
	switch {
	case content.IsMissing(err), errors.Is(err, content.ErrNotADirectory):
		return locales, nil
	case err != nil:
		return nil, fmt.Errorf("error listing locales of %s: %w", path, err)
	}

	for _, e := range entries {
		if m := localeFileRE.FindStringSubmatch(e.Name); m != nil {
			locales = append(locales, m[1])
		}
	}
	return locales, nil
}

// Refresh drops the cached content of path in locale along with its locale
// listing.
func (s *Service) Refresh(ctx context.Context, path, locale string) error {
	p, err := s.Page(path, locale)
	if err != nil {
		return err
	}
	return p.Invalidate(ctx)
}
