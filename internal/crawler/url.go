package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ragops/handbook-ingest/internal/hash/sha256"
)

// assetExtensions matches non-document asset paths excluded from the crawl.
var assetExtensions = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|gif|svg|webp|css|js|pdf|zip|mp4|mov|webm)$`)

var slugInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]+`)

// urlHashLen is the number of hex characters appended to stored filenames.
const urlHashLen = 10

// Scope restricts the crawl to a single host and path prefix.
type Scope struct {
	Host   string
	Prefix string
}

// Normalize canonicalizes a URL to reduce duplicates: forces https, fills in
// the scoped host when missing, drops fragments and query strings, and
// rewrites the bare prefix path to its trailing-slash form. Normalize is
// idempotent and total; input it cannot parse is returned trimmed, and will
// be rejected by IsAllowed.
func (s Scope) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = "https"
	if u.Host == "" {
		u.Host = s.Host
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""

	if bare := strings.TrimSuffix(s.Prefix, "/"); bare != "" && u.Path == bare {
		u.Path = s.Prefix
	}
	return u.String()
}

// IsAllowed reports whether a URL is in scope: the scoped host, a path under
// the scoped prefix, and not a non-document asset. Unparseable input is not
// allowed.
func (s Scope) IsAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Host != s.Host {
		return false
	}
	if !strings.HasPrefix(u.Path, s.Prefix) {
		return false
	}
	return !assetExtensions.MatchString(u.Path)
}

// SectionOf classifies a handbook URL into its coarse section tag.
func SectionOf(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	switch {
	case strings.Contains(path, "/handbook/finance/"):
		return "finance"
	case strings.Contains(path, "/handbook/security/"):
		return "security"
	case strings.Contains(path, "/handbook/legal/"):
		return "legal"
	case strings.Contains(path, "/handbook/people-group/"):
		return "people-group"
	default:
		return "handbook"
	}
}

// FilenameFor derives a stable storage filename for a URL: a lower-cased,
// filesystem-safe slug of the last path segment plus a short hash of the
// full URL to avoid collisions between similarly named paths.
func FilenameFor(raw string) string {
	slug := "index"
	if u, err := url.Parse(raw); err == nil {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if last := parts[len(parts)-1]; last != "" {
			slug = last
		}
	}
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = strings.ToLower(strings.Trim(slug, "-"))
	if slug == "" {
		slug = "index"
	}
	return fmt.Sprintf("%s-%s.html", slug, sha256.Short([]byte(raw), urlHashLen))
}
