// Package normalize implements the URL and HTML normalization rules
// spec.md §4.3 defines: canonical URL form, domain matching, HTML text
// stripping, and the content hash used for the unchanged-content gate.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	duplicateSlashes = regexp.MustCompile(`/{2,}`)
	scriptTag        = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag         = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag      = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlComment      = regexp.MustCompile(`(?s)<!--.*?-->`)
	anyTag           = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
)

// NormalizeURL accepts a bare hostname or a full URL and returns its
// canonical form, or ok=false if it cannot be made into an http(s) URL.
// Canonicalization: require http/https scheme, lowercase the host, strip
// a leading "www.", discard query and fragment, collapse duplicate
// slashes in the path, and default an empty path to "/".
func NormalizeURL(raw string) (canonical string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	schemeSep := strings.Index(raw, "://")
	scheme := strings.ToLower(raw[:schemeSep])
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	rest := raw[schemeSep+3:]

	// Split off fragment and query.
	if idx := strings.IndexAny(rest, "#?"); idx >= 0 {
		rest = rest[:idx]
	}

	// Split host from path.
	host := rest
	path := "/"
	if idx := strings.Index(rest, "/"); idx >= 0 {
		host = rest[:idx]
		path = rest[idx:]
	}

	host = strings.ToLower(host)
	if host == "" {
		return "", false
	}
	host = strings.TrimPrefix(host, "www.")

	path = duplicateSlashes.ReplaceAllString(path, "/")
	if path == "" {
		path = "/"
	}

	return scheme + "://" + host + path, true
}

// MatchesDomain reports whether url's normalized host equals domain or is
// a subdomain of it, per spec.md §4.3.
func MatchesDomain(url, domain string) bool {
	canonical, ok := NormalizeURL(url)
	if !ok {
		return false
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")

	schemeSep := strings.Index(canonical, "://")
	rest := canonical[schemeSep+3:]
	host := rest
	if idx := strings.Index(rest, "/"); idx >= 0 {
		host = rest[:idx]
	}

	return host == domain || strings.HasSuffix(host, "."+domain)
}

// StripHTMLToText removes script/style/noscript blocks, HTML comments,
// and all remaining tags, decodes the basic entities, and collapses
// whitespace runs to a single space, per spec.md §4.3.
func StripHTMLToText(html string) string {
	text := scriptTag.ReplaceAllString(html, " ")
	text = styleTag.ReplaceAllString(text, " ")
	text = noscriptTag.ReplaceAllString(text, " ")
	text = htmlComment.ReplaceAllString(text, " ")
	text = anyTag.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeHTMLForHash lowercases the stripped text, the input the
// content hash is computed from.
func NormalizeHTMLForHash(html string) string {
	return strings.ToLower(StripHTMLToText(html))
}

// ContentHash returns the lowercase hex-encoded SHA-256 digest of s.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
