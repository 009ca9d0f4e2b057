// Package service wires the ingestion pipeline: URLs are fetched one at a
// time, reduced to clean documents, chunked, embedded and indexed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/ragweb/internal/index"
	"github.com/raphaelgruber/ragweb/internal/metrics"
	"github.com/raphaelgruber/ragweb/internal/models"
	"github.com/raphaelgruber/ragweb/internal/parser"
)

// Scraper fetches one URL into a document record, never failing hard.
type Scraper interface {
	Scrape(ctx context.Context, url string) models.ScrapedDocument
}

// ProgressFunc reports ingestion progress after each URL completes.
type ProgressFunc func(done, total int, url string)

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	// Documents holds one record per requested URL, success or not,
	// in request order.
	Documents []models.ScrapedDocument
	// SucceededURLs are the URLs that produced usable content.
	SucceededURLs []string
	// Index is the similarity index over this batch, or nil when no
	// document yielded content. It fully replaces any prior index.
	Index *index.Index
	// Chunks is the number of windows the index was built from.
	Chunks int
}

// IngestService turns URL batches into similarity indexes.
type IngestService struct {
	scraper   Scraper
	embedder  index.Embedder
	chunkCfg  parser.ChunkConfig
	collector *metrics.Collector
	log       *slog.Logger
}

// NewIngestService creates an ingest service. collector may be nil.
func NewIngestService(scraper Scraper, embedder index.Embedder, chunkCfg parser.ChunkConfig, collector *metrics.Collector, log *slog.Logger) *IngestService {
	if log == nil {
		log = slog.Default()
	}
	return &IngestService{
		scraper:   scraper,
		embedder:  embedder,
		chunkCfg:  chunkCfg,
		collector: collector,
		log:       log,
	}
}

// IngestURLs fetches each URL sequentially, each fetch bounded by the
// scraper's own timeout, then builds one index over all usable content.
// Per-URL failures are recorded on the result, never raised. An embedding
// failure aborts the batch with an error, leaving whatever index the
// caller held before untouched.
func (s *IngestService) IngestURLs(ctx context.Context, urls []string, progress ProgressFunc) (*IngestResult, error) {
	if len(urls) == 0 {
		return nil, errors.New("no URLs provided")
	}

	result := &IngestResult{
		Documents: make([]models.ScrapedDocument, 0, len(urls)),
	}

	for i, url := range urls {
		start := time.Now()
		doc := s.scraper.Scrape(ctx, url)
		if s.collector != nil {
			s.collector.RecordTiming(metrics.OpScrape, time.Since(start))
		}

		result.Documents = append(result.Documents, doc)
		if doc.Success && doc.Content != "" {
			result.SucceededURLs = append(result.SucceededURLs, doc.URL)
		} else if doc.Success {
			s.log.Warn("page yielded no content", "url", url)
		} else {
			s.log.Warn("scrape failed", "url", url, "error", doc.Error)
		}

		if progress != nil {
			progress(i+1, len(urls), url)
		}
	}

	var chunks []models.Chunk
	for _, doc := range result.Documents {
		if !doc.Success || doc.Content == "" {
			continue
		}
		chunks = append(chunks, parser.SplitDocument(doc, s.chunkCfg)...)
	}

	if len(chunks) == 0 {
		s.log.Info("ingestion produced no usable content", "urls", len(urls))
		return result, nil
	}

	embedStart := time.Now()
	ix, err := index.Build(ctx, s.embedder, chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if s.collector != nil {
		s.collector.RecordTiming(metrics.OpEmbedding, time.Since(embedStart))
	}

	result.Index = ix
	result.Chunks = len(chunks)

	s.log.Info("ingestion batch complete",
		"urls", len(urls),
		"succeeded", len(result.SucceededURLs),
		"chunks", len(chunks))

	return result, nil
}
