// Package parser splits document text into retrieval-sized chunks.
package parser

import (
	"strings"

	"github.com/raphaelgruber/ragweb/internal/models"
)

// ChunkConfig defines chunking parameters.
type ChunkConfig struct {
	// Size is the window length in characters.
	Size int
	// Overlap is the number of characters shared by consecutive windows.
	Overlap int
}

// DefaultChunkConfig returns the standard retrieval window.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{Size: 1000, Overlap: 200}
}

// normalized guards against degenerate settings. Overlap must leave a
// positive stride or the window loop would never advance.
func (c ChunkConfig) normalized() ChunkConfig {
	if c.Size <= 0 {
		c.Size = 1000
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap >= c.Size {
		c.Overlap = c.Size / 5
	}
	return c
}

// SplitDocument cuts a scraped document into overlapping windows, each
// inheriting the document's source metadata. The last window may be
// shorter than the configured size.
func SplitDocument(doc models.ScrapedDocument, cfg ChunkConfig) []models.Chunk {
	parts := SplitText(doc.Content, cfg)
	chunks := make([]models.Chunk, 0, len(parts))
	for _, part := range parts {
		chunks = append(chunks, models.Chunk{
			Text:      part,
			URL:       doc.URL,
			Title:     doc.Title,
			ScrapedAt: doc.ScrapedAt,
		})
	}
	return chunks
}

// SplitText splits text into fixed-size windows with the configured
// overlap. Windows are measured in characters, not bytes, so multi-byte
// runes are never cut in half. Empty or whitespace-only text yields no
// chunks.
func SplitText(text string, cfg ChunkConfig) []string {
	cfg = cfg.normalized()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= cfg.Size {
		return []string{text}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - cfg.Overlap
	}
	return parts
}
