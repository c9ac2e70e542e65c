// Package chunker splits cleaned handbook documents into heading-aware,
// size-limited chunks for embedding.
package chunker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/config"
	"github.com/ragops/handbook-ingest/internal/pipeline/cleaner"
)

// Chunk is one embeddable slice of a cleaned document. ChunkID is stable
// across reruns over the same input file.
type Chunk struct {
	ChunkID        string `json:"chunk_id"`
	Source         string `json:"source"`
	Section        string `json:"section"`
	HeadingContext string `json:"heading_context"`
	Text           string `json:"text"`
	SourcePath     string `json:"source_path"`
}

// Section is a heading-delimited region of a cleaned document.
type Section struct {
	Heading string
	Content string
}

// headingPattern matches the upper-cased heading lines the cleaner emits.
var headingPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 \-/,&()]+$`)

// defaultHeading labels content appearing before the first heading.
const defaultHeading = "INTRODUCTION"

// Chunker streams cleaned documents and writes their chunks as JSONL.
type Chunker struct {
	cfg    config.ChunkConfig
	logger *zap.Logger
}

// New constructs a Chunker.
func New(cfg config.ChunkConfig, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{cfg: cfg, logger: logger}
}

// Run chunks every document in the input file and rewrites the output file.
func (c *Chunker) Run(ctx context.Context) error {
	in, err := os.Open(c.cfg.InPath)
	if err != nil {
		return fmt.Errorf("open cleaned documents: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			c.logger.Warn("close input file", zap.Error(closeErr))
		}
	}()

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
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	docIndex := 0
	totalChunks := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var rec cleaner.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return fmt.Errorf("parse document %d: %w", docIndex, err)
		}
		for _, ch := range ChunkDocument(rec, docIndex, c.cfg.MaxChars, c.cfg.OverlapChars) {
			line, err := json.Marshal(ch)
			if err != nil {
				return fmt.Errorf("marshal chunk %s: %w", ch.ChunkID, err)
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("write chunk: %w", err)
			}
			totalChunks++
		}
		docIndex++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read cleaned documents: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	c.logger.Info("chunking finished",
		zap.Int("documents", docIndex),
		zap.Int("chunks", totalChunks),
		zap.String("out", c.cfg.OutPath),
	)
	return nil
}

// ChunkDocument splits one cleaned document into heading-aware chunks. The
// chunk counter runs across sections so IDs stay unique per document.
func ChunkDocument(rec cleaner.Record, docIndex, maxChars, overlap int) []Chunk {
	var out []Chunk
	counter := 0
	for _, sec := range SplitByHeadings(rec.CleanedText) {
		if sec.Content == "" {
			continue
		}
		for _, text := range WindowChunks(sec.Content, maxChars, overlap) {
			out = append(out, Chunk{
				ChunkID:        fmt.Sprintf("%s_%04d_%02d", rec.Section, docIndex, counter),
				Source:         rec.Source,
				Section:        rec.Section,
				HeadingContext: sec.Heading,
				Text:           text,
				SourcePath:     rec.SourcePath,
			})
			counter++
		}
	}
	return out
}

// SplitByHeadings partitions text on upper-cased heading lines. Content
// before the first heading falls under a synthetic introduction heading.
func SplitByHeadings(text string) []Section {
	var sections []Section
	heading := defaultHeading
	var buffer []string

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		sections = append(sections, Section{
			Heading: heading,
			Content: strings.TrimSpace(strings.Join(buffer, "\n")),
		})
		buffer = buffer[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if headingPattern.MatchString(trimmed) {
			flush()
			heading = trimmed
			continue
		}
		buffer = append(buffer, line)
	}
	flush()
	return sections
}

// WindowChunks slices text into windows of at most maxChars runes, with
// consecutive windows overlapping by overlap runes. The caller guarantees
// overlap < maxChars, so the window start always advances.
func WindowChunks(text string, maxChars, overlap int) []string {
	runes := []rune(text)
	length := len(runes)

	var chunks []string
	start := 0
	for start < length {
		end := start + maxChars
		if end > length {
			end = length
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == length {
			break
		}
		start = end - overlap
	}
	return chunks
}
