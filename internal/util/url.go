package util

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Origin returns the scheme and host of rawURL ("https://example.com")
func Origin(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("URL %q must be absolute", rawURL)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

// ResolveURL resolves href against base. Fragments are dropped so the same
// listing linked twice resolves to one address. Returns "" for hrefs that
// cannot be followed (empty, javascript:, mailto:, tel:).
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		log.Debug().Str("base", base).Err(err).Msg("Invalid base URL")
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		log.Debug().Str("href", href).Err(err).Msg("Invalid link")
		return ""
	}

	resolved := baseURL.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// PageURL returns the address of index page n. Page 1 is the search URL
// itself; later pages append a page parameter.
func PageURL(searchURL string, page int) string {
	if page <= 1 {
		return searchURL
	}
	sep := "&"
	if !strings.Contains(searchURL, "?") {
		sep = "?"
	}
	return searchURL + sep + "page=" + strconv.Itoa(page)
}

// normaliseHostPort removes default ports (80 for HTTP, 443 for HTTPS) from host.
func normaliseHostPort(host, scheme string) string {
	if scheme == "http" && strings.HasSuffix(host, ":80") {
		return strings.TrimSuffix(host, ":80")
	}
	if scheme == "https" && strings.HasSuffix(host, ":443") {
		return strings.TrimSuffix(host, ":443")
	}
	return host
}

// IsSignificantRedirect checks if a redirect URL is meaningfully different from the original.
// Only the host and path are compared; query parameters and fragments are ignored.
// Returns false for trivial redirects like:
//   - HTTP to HTTPS on same domain/path
//   - www to non-www (or vice versa) on same path
//   - Trailing slash differences
//   - Default port differences (e.g., :443 for HTTPS, :80 for HTTP)
//
// A listing that was withdrawn typically redirects to a search page, which
// is significant.
func IsSignificantRedirect(originalURL, redirectURL string) bool {
	if redirectURL == "" {
		return false
	}

	origParsed, origErr := url.Parse(originalURL)
	redirParsed, redirErr := url.Parse(redirectURL)
	if origErr != nil || redirErr != nil {
		return true
	}

	origHost := normaliseHostPort(origParsed.Host, origParsed.Scheme)
	origHost = strings.ToLower(strings.TrimPrefix(origHost, "www."))
	redirHost := normaliseHostPort(redirParsed.Host, redirParsed.Scheme)
	redirHost = strings.ToLower(strings.TrimPrefix(redirHost, "www."))

	if origHost != redirHost {
		return true
	}

	origPath := origParsed.Path
	redirPath := redirParsed.Path
	if origPath == "" {
		origPath = "/"
	}
	if redirPath == "" {
		redirPath = "/"
	}
	if len(origPath) > 1 {
		origPath = strings.TrimSuffix(origPath, "/")
	}
	if len(redirPath) > 1 {
		redirPath = strings.TrimSuffix(redirPath, "/")
	}

	return origPath != redirPath
}
