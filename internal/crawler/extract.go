package crawler

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks parses anchor elements out of fetched HTML, resolves relative
// references against the source URL, normalizes each candidate, and returns
// the sorted set of links that pass the scope filter. It has no side effects.
func ExtractLinks(scope Scope, sourceURL string, body []byte) []string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := anchorHref(n); href != "" {
				if resolved := resolveRef(base, href); resolved != "" {
					normalized := scope.Normalize(resolved)
					if scope.IsAllowed(normalized) {
						seen[normalized] = struct{}{}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}

func anchorHref(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func resolveRef(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
