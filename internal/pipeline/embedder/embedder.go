// Package embedder turns handbook chunks into embedding vectors via an
// OpenAI-compatible embeddings endpoint.
package embedder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/config"
	"github.com/ragops/handbook-ingest/internal/pipeline/chunker"
)

// Vector is one embedded chunk with its retrieval metadata.
type Vector struct {
	ChunkID        string    `json:"chunk_id"`
	Embedding      []float64 `json:"embedding"`
	Text           string    `json:"text"`
	Section        string    `json:"section"`
	HeadingContext string    `json:"heading_context"`
	Source         string    `json:"source"`
	SourcePath     string    `json:"source_path"`
}

// Client calls an embeddings HTTP endpoint speaking the OpenAI request and
// response shapes.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

// NewClient builds a Client from the embed configuration. The API key is
// read from the environment variable the config names, and may be empty
// for local endpoints.
func NewClient(cfg config.EmbedConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   os.Getenv(cfg.APIKeyEnv),
		http:     &http.Client{Timeout: cfg.Timeout()},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	payload, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embeddings endpoint: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings endpoint returned status %d", resp.StatusCode)
	}
	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings endpoint returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}
	vectors := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Embedder streams chunks through the client in batches and writes one
// vector record per chunk.
type Embedder struct {
	cfg    config.EmbedConfig
	client *Client
	logger *zap.Logger
}

// New constructs an Embedder. A nil client gets one built from cfg.
func New(cfg config.EmbedConfig, client *Client, logger *zap.Logger) *Embedder {
	if client == nil {
		client = NewClient(cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{cfg: cfg, client: client, logger: logger}
}

// Run embeds every chunk in the input file, batch by batch, and rewrites
// the output file. A failing batch aborts the run; partially written output
// is safe to regenerate.
func (e *Embedder) Run(ctx context.Context) error {
	in, err := os.Open(e.cfg.InPath)
	if err != nil {
		return fmt.Errorf("open chunks: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			e.logger.Warn("close input file", zap.Error(closeErr))
		}
	}()

	if err := os.MkdirAll(filepath.Dir(e.cfg.OutPath), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(e.cfg.OutPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			e.logger.Warn("close output file", zap.Error(closeErr))
		}
	}()

	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	batch := make([]chunker.Chunk, 0, e.cfg.BatchSize)
	written := 0
	for scanner.Scan() {
		var ch chunker.Chunk
		if err := json.Unmarshal(scanner.Bytes(), &ch); err != nil {
			return fmt.Errorf("parse chunk %d: %w", written+len(batch), err)
		}
		batch = append(batch, ch)
		if len(batch) >= e.cfg.BatchSize {
			n, err := e.processBatch(ctx, w, batch)
			if err != nil {
				return err
			}
			written += n
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read chunks: %w", err)
	}
	if len(batch) > 0 {
		n, err := e.processBatch(ctx, w, batch)
		if err != nil {
			return err
		}
		written += n
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	e.logger.Info("embedding finished",
		zap.Int("vectors", written),
		zap.String("out", e.cfg.OutPath),
	)
	return nil
}

// processBatch embeds one batch and writes its vector records.
func (e *Embedder) processBatch(ctx context.Context, w *bufio.Writer, batch []chunker.Chunk) (int, error) {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Text
	}
	vectors, err := e.client.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	for i, ch := range batch {
		rec := Vector{
			ChunkID:        ch.ChunkID,
			Embedding:      vectors[i],
			Text:           ch.Text,
			Section:        ch.Section,
			HeadingContext: ch.HeadingContext,
			Source:         ch.Source,
			SourcePath:     ch.SourcePath,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("marshal vector %s: %w", rec.ChunkID, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return 0, fmt.Errorf("write vector: %w", err)
		}
	}
	return len(batch), nil
}
