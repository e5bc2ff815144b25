package wiki

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp-forge/hermes-wiki/pkg/render"
)

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	// Locale the content was found in.
	Locale string

	Document *render.Document
}

// Page resolves a single wiki path. Results are memoized on the Page, so a
// Page should be scoped to one request. A Page is not safe for concurrent
// use.
type Page struct {
	svc *Service

	path            string
	requestedLocale string
	locale          string

	loaded   bool
	resolved *Resolved

	localesLoaded bool
	locales       []string

	defaultTitle    string
	defaultSubtitle string
}

func newPage(svc *Service, path, locale string) *Page {
	title, subtitle := defaultTitles(path)
	return &Page{
		svc:             svc,
		path:            path,
		requestedLocale: locale,
		locale:          locale,
		defaultTitle:    title,
		defaultSubtitle: subtitle,
	}
}

// Path returns the cleaned page path.
func (p *Page) Path() string {
	return p.path
}

// RequestedLocale returns the locale the page was asked for.
func (p *Page) RequestedLocale() string {
	return p.requestedLocale
}

// Locale returns the locale the page currently points at: the requested
// one until the page is resolved, then the locale content was found in.
// When no candidate had content it is the last locale tried.
func (p *Page) Locale() string {
	return p.locale
}

// PagePath returns "{path}/{locale}.md" for the current locale.
func (p *Page) PagePath() string {
	return PagePath(p.path, p.locale)
}

// Resolve returns the page content, trying the requested locale and then
// the fallback locale. It returns nil when neither has content. Successful
// results are memoized; errors are not.
func (p *Page) Resolve(ctx context.Context) (*Resolved, error) {
	if p.loaded {
		return p.resolved, nil
	}

	var (
		resolved *Resolved
		current  = p.locale
	)
	for _, locale := range LocaleCandidates(p.requestedLocale, p.svc.cfg.FallbackLocale) {
		current = locale
		doc, err := p.svc.document(ctx, p.path, locale)
		if err != nil {
			return nil, fmt.Errorf("error resolving %s: %w", PagePath(p.path, locale), err)
		}
		if doc != nil {
			resolved = &Resolved{Locale: locale, Document: doc}
			break
		}
	}

	p.locale = current
	p.resolved = resolved
	p.loaded = true
	return resolved, nil
}

// Invalidate drops the cached content for the current locale and the
// cached locale listing, and clears what this Page has memoized. The
// search index is left alone; the next resolution updates it.
func (p *Page) Invalidate(ctx context.Context) error {
	if err := p.svc.cache.Forget(ctx, ContentKey(p.svc.renderer.Version(), p.path, p.locale)); err != nil {
		return err
	}
	if err := p.svc.cache.Forget(ctx, LocalesKey(p.path)); err != nil {
		return err
	}

	p.loaded, p.resolved = false, nil
	p.localesLoaded, p.locales = false, nil
	p.svc.logger.Info("invalidated page", "path", p.path, "locale", p.locale)
	return nil
}

// Title returns the display title. Pages without content get the configured
// missing title. withSubtitle prefixes the subtitle, if any, as
// "{subtitle} / {title}".
func (p *Page) Title(ctx context.Context, withSubtitle bool) (string, error) {
	r, err := p.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if r == nil {
		return p.svc.cfg.MissingTitle, nil
	}

	title := presence(r.Document.Header.Title, p.defaultTitle)
	if withSubtitle {
		if subtitle := presence(r.Document.Header.Subtitle, p.defaultSubtitle); subtitle != "" {
			title = subtitle + " / " + title
		}
	}
	return title, nil
}

// Subtitle returns the display subtitle, or "" for pages without content.
func (p *Page) Subtitle(ctx context.Context) (string, error) {
	r, err := p.Resolve(ctx)
	if err != nil || r == nil {
		return "", err
	}
	return presence(r.Document.Header.Subtitle, p.defaultSubtitle), nil
}

// Body returns the rendered HTML, or "" for pages without content.
func (p *Page) Body(ctx context.Context) (string, error) {
	r, err := p.Resolve(ctx)
	if err != nil || r == nil {
		return "", err
	}
	return r.Document.Output, nil
}

// Metadata returns the page front matter.
func (p *Page) Metadata(ctx context.Context) (map[string]any, error) {
	r, err := p.Resolve(ctx)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Document.Metadata, nil
}

// Locales lists the locales the page is available in, in store order.
func (p *Page) Locales(ctx context.Context) ([]string, error) {
	if p.localesLoaded {
		return p.locales, nil
	}
	locales, err := p.svc.locales(ctx, p.path)
	if err != nil {
		return nil, err
	}
	p.locales, p.localesLoaded = locales, true
	return locales, nil
}

// EditURL links to the page source in the current locale.
func (p *Page) EditURL() string {
	c := p.svc.cfg
	return fmt.Sprintf("https://%s/%s/%s/tree/%s/wiki/%s", c.RepoHost, c.RepoOwner, c.RepoName, c.RepoBranch, p.PagePath())
}

// presence returns s unless it is blank, in which case it returns def.
func presence(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
