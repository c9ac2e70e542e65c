// Package cleaner turns raw handbook HTML pages into plain-text JSONL
// documents ready for chunking.
package cleaner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/ragops/handbook-ingest/internal/config"
)

// Record is one cleaned document.
type Record struct {
	Source      string `json:"source"`
	Section     string `json:"section"`
	CleanedText string `json:"cleaned_text"`
	SourcePath  string `json:"source_path"`
}

// sourceName labels every cleaned record with its corpus of origin.
const sourceName = "gitlab_handbook"

// Cleaner reads saved pages and writes one cleaned record per page that
// still has content after boilerplate removal.
type Cleaner struct {
	cfg    config.CleanConfig
	logger *zap.Logger
}

// New constructs a Cleaner.
func New(cfg config.CleanConfig, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{cfg: cfg, logger: logger}
}

// Run cleans every HTML page in the input directory, in name order, and
// rewrites the output file. Pages that yield no content are skipped.
func (c *Cleaner) Run(ctx context.Context) error {
	paths, err := htmlFiles(c.cfg.RawPagesDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.cfg.OutPath), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(c.cfg.OutPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			c.logger.Warn("close output file", zap.Error(closeErr))
		}
	}()

	w := bufio.NewWriter(out)
	written := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read page %s: %w", path, err)
		}
		text := ExtractMainContent(raw)
		if text == "" {
			c.logger.Debug("page yielded no content", zap.String("path", path))
			continue
		}
		rec := Record{
			Source:      sourceName,
			Section:     SectionFromFilename(filepath.Base(path)),
			CleanedText: text,
			SourcePath:  path,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		written++
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	c.logger.Info("cleaning finished",
		zap.Int("pages", len(paths)),
		zap.Int("documents", written),
		zap.String("out", c.cfg.OutPath),
	)
	return nil
}

// htmlFiles lists the .html files directly under dir, sorted by name.
func htmlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pages dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// SectionFromFilename recovers the handbook section from a saved page
// filename; the crawler embeds the section in the URL slug.
func SectionFromFilename(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "finance"):
		return "finance"
	case strings.Contains(lower, "security"):
		return "security"
	case strings.Contains(lower, "legal"):
		return "legal"
	case strings.Contains(lower, "people"):
		return "people-group"
	default:
		return "handbook"
	}
}

// junkTags are removed wholesale before content extraction.
var junkTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"nav":      {},
	"footer":   {},
	"aside":    {},
}

// contentTags are the elements flattened into output lines.
var contentTags = map[string]struct{}{
	"h1": {},
	"h2": {},
	"h3": {},
	"h4": {},
	"p":  {},
	"li": {},
}

// ExtractMainContent flattens the page's main content region into plain
// text: headings become upper-cased lines, list items get a dash prefix,
// and boilerplate containers are dropped. Returns "" when nothing remains.
func ExtractMainContent(raw []byte) string {
	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return ""
	}
	main := findContainer(doc)
	if main == nil {
		return ""
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, junk := junkTags[n.Data]; junk {
				return
			}
			if _, ok := contentTags[n.Data]; ok {
				text := nodeText(n)
				if text != "" {
					switch {
					case strings.HasPrefix(n.Data, "h"):
						lines = append(lines, strings.ToUpper(text))
					case n.Data == "li":
						lines = append(lines, "- "+text)
					default:
						lines = append(lines, text)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(main)
	return strings.Join(lines, "\n")
}

// findContainer picks the most specific content container present, in
// preference order: article, main, div[role=main], body.
func findContainer(doc *html.Node) *html.Node {
	if n := findElement(doc, func(n *html.Node) bool { return n.Data == "article" }); n != nil {
		return n
	}
	if n := findElement(doc, func(n *html.Node) bool { return n.Data == "main" }); n != nil {
		return n
	}
	if n := findElement(doc, func(n *html.Node) bool {
		return n.Data == "div" && attrValue(n, "role") == "main"
	}); n != nil {
		return n
	}
	return findElement(doc, func(n *html.Node) bool { return n.Data == "body" })
}

// findElement returns the first element in document order matching pred,
// never descending into junk containers.
func findElement(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode {
		if _, junk := junkTags[n.Data]; junk {
			return nil
		}
		if pred(n) {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// nodeText concatenates the trimmed text descendants of n, skipping junk
// subtrees.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.TrimSpace(n.Data))
		case html.ElementNode:
			if _, junk := junkTags[n.Data]; junk {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
