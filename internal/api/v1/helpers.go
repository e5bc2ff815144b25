package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/hashicorp-forge/hermes-wiki/internal/server"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

// parseWikiPathFromURL parses a URL path with the format
// "/api/v1/{apiPath}/{wikiPath}" and returns the wiki path.
func parseWikiPathFromURL(urlPath, apiPath string) (string, error) {
	p := strings.TrimPrefix(urlPath, fmt.Sprintf("/api/v1/%s", apiPath))
	p = strings.Trim(p, "/")
	if p == "" {
		return "", fmt.Errorf("no wiki path set in url path")
	}
	return p, nil
}

// requestLocale returns the locale asked for with the "locale" query
// parameter, then the first Accept-Language preference, then "". The query
// parameter is returned as given so that invalid values can be rejected.
func requestLocale(r *http.Request) string {
	if l := strings.TrimSpace(r.URL.Query().Get("locale")); l != "" {
		return l
	}
	return acceptLanguage(r)
}

// acceptLanguage returns the most preferred language of the request in
// wiki locale form ("en", "pt-BR").
func acceptLanguage(r *http.Request) string {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	tag := tags[0]
	if tag == language.Und {
		return ""
	}

	base, _ := tag.Base()
	region, conf := tag.Region()
	if l := base.String() + "-" + region.String(); conf == language.Exact && wiki.ValidLocale(l) {
		return l
	}
	if wiki.ValidLocale(base.String()) {
		return base.String()
	}
	return ""
}

// intList parses repeated or comma separated integer parameters. Values
// that are not integers are dropped.
func intList(q url.Values, key string) []int64 {
	out := []int64{}
	for _, raw := range append(q[key], q[key+"[]"]...) {
		for _, v := range strings.Split(raw, ",") {
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}

// optionalInt parses an integer parameter. Missing or invalid values give
// nil.
func optionalInt(q url.Values, key string) *int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(q.Get(key)), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// intParam parses an integer parameter, returning 0 when missing or
// invalid.
func intParam(q url.Values, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil {
		return 0
	}
	return n
}

func respondJSON(srv server.Server, w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		srv.Logger.Error("error encoding response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
	}
}
