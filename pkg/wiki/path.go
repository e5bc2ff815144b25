package wiki

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPath is returned for paths that cannot name a wiki page.
	ErrInvalidPath = errors.New("invalid wiki path")

	// ErrInvalidLocale is returned for locales other than "xx" or "xx-YY".
	ErrInvalidLocale = errors.New("invalid wiki locale")
)

// ValidLocale reports whether locale has the form of a wiki locale, such
// as "en" or "pt-BR".
func ValidLocale(locale string) bool {
	return localeRE.MatchString(locale)
}

// CleanPath normalizes a page path: surrounding whitespace and slashes are
// removed and repeated slashes collapse. Empty paths and "." or ".."
// segments are rejected.
func CleanPath(path string) (string, error) {
	var segments []string
	for _, seg := range strings.Split(strings.TrimSpace(path), "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	return strings.Join(segments, "/"), nil
}

// LocaleCandidates returns the locales to try, in order, without
// duplicates or empty entries.
func LocaleCandidates(requested, fallback string) []string {
	candidates := make([]string, 0, 2)
	for _, locale := range []string{requested, fallback} {
		if locale == "" {
			continue
		}
		if len(candidates) > 0 && candidates[0] == locale {
			continue
		}
		candidates = append(candidates, locale)
	}
	return candidates
}

// defaultTitles derives display titles from the last two path segments.
func defaultTitles(path string) (title, subtitle string) {
	segments := strings.Split(strings.ReplaceAll(path, "_", " "), "/")
	title = segments[len(segments)-1]
	if len(segments) > 1 {
		subtitle = segments[len(segments)-2]
	}
	return title, subtitle
}

// StoragePath returns where the page source lives in the content store.
func StoragePath(path, locale string) string {
	return "wiki/" + PagePath(path, locale)
}

// PagePath returns "{path}/{locale}.md", which is also the search id.
func PagePath(path, locale string) string {
	return path + "/" + locale + ".md"
}

// ContentKey is the cache key of a rendered page.
func ContentKey(rendererVersion, path, locale string) string {
	return fmt.Sprintf("wiki:page:page:%d.%s:%s", Version, rendererVersion, PagePath(path, locale))
}

// LocalesKey is the cache key of a page's locale listing.
func LocalesKey(path string) string {
	return "wiki:page:locales:" + path
}
