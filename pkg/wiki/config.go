// Package wiki resolves wiki pages by path and locale. Rendered pages are
// cached under versioned keys and mirrored into the search index.
package wiki

import (
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Version is bumped whenever resolution changes what ends up in the cache.
const Version = 1

// DefaultCacheTTL is how long resolved pages and locale listings are cached.
const DefaultCacheTTL = 300 * time.Minute

const (
	DefaultFallbackLocale = "en"
	DefaultRepoHost       = "github.com"
	DefaultRepoBranch     = "master"
	DefaultMissingTitle   = "Missing page"
	DefaultLinkBase       = "/wiki"
)

var (
	localeRE     = regexp.MustCompile(`^\w{2}(?:-\w{2})?$`)
	localeFileRE = regexp.MustCompile(`^(\w{2}(?:-\w{2})?)\.md$`)
)

// Config is the explicit configuration of a wiki Service.
type Config struct {
	// FallbackLocale is tried after the requested locale.
	FallbackLocale string `hcl:"fallback_locale,optional"`

	// IndexName is the configured search index name. Pages go to
	// "{IndexName}:wiki_pages".
	IndexName string `hcl:"index_name"`

	// Repository coordinates used for edit links.
	RepoHost   string `hcl:"repo_host,optional"`
	RepoOwner  string `hcl:"repo_owner"`
	RepoName   string `hcl:"repo_name"`
	RepoBranch string `hcl:"repo_branch,optional"`

	// CacheTTLMinutes overrides DefaultCacheTTL.
	CacheTTLMinutes int `hcl:"cache_ttl_minutes,optional"`

	// MissingTitle is shown for pages with no content in any locale.
	MissingTitle string `hcl:"missing_title,optional"`

	// LinkBase is the public URL prefix of wiki pages. Relative links in
	// a page resolve against "{LinkBase}/{path}".
	LinkBase string `hcl:"link_base,optional"`
}

// SetDefaults sets default values for optional configuration fields.
func (c *Config) SetDefaults() {
	if c.FallbackLocale == "" {
		c.FallbackLocale = DefaultFallbackLocale
	}
	if c.RepoHost == "" {
		c.RepoHost = DefaultRepoHost
	}
	if c.RepoBranch == "" {
		c.RepoBranch = DefaultRepoBranch
	}
	if c.MissingTitle == "" {
		c.MissingTitle = DefaultMissingTitle
	}
	if c.LinkBase == "" {
		c.LinkBase = DefaultLinkBase
	}
}

// Validate validates the wiki configuration.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.FallbackLocale, validation.Required, validation.Match(localeRE)),
		validation.Field(&c.IndexName, validation.Required),
		validation.Field(&c.RepoOwner, validation.Required),
		validation.Field(&c.RepoName, validation.Required),
		validation.Field(&c.CacheTTLMinutes, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("invalid wiki configuration: %w", err)
	}
	return nil
}

// CacheTTL returns the configured cache lifetime.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLMinutes > 0 {
		return time.Duration(c.CacheTTLMinutes) * time.Minute
	}
	return DefaultCacheTTL
}
