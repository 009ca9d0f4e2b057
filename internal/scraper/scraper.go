// Package scraper fetches web pages and reduces them to clean text.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/raphaelgruber/ragweb/internal/models"
)

// userAgent mimics a desktop browser; plenty of sites refuse the Go default.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// defaultTitle is used when a page has no <title> element.
const defaultTitle = "Untitled page"

// contentSelectors are tried in order; the first one matching any element
// wins and its elements' text is concatenated. Order matters: semantic
// regions first, then common CMS class/id markers.
var contentSelectors = []string{
	"article",
	"main",
	".content",
	"#content",
	".post",
	".entry",
}

// Scraper fetches URLs with a bounded timeout and extracts readable text.
type Scraper struct {
	client *http.Client
	log    *slog.Logger
}

// New creates a Scraper whose fetches are bounded by timeout.
func New(timeout time.Duration, log *slog.Logger) *Scraper {
	if log == nil {
		log = slog.Default()
	}
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Scrape fetches a URL and extracts title and body text. It never returns
// an error: transport failures, timeouts and non-2xx statuses all produce
// a document with Success=false and a description in Error.
func (s *Scraper) Scrape(ctx context.Context, url string) models.ScrapedDocument {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return s.failure(url, fmt.Sprintf("invalid request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.failure(url, fmt.Sprintf("fetch failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.failure(url, fmt.Sprintf("unexpected status: %s", resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return s.failure(url, fmt.Sprintf("parse html: %v", err))
	}

	title, content := extract(doc)

	s.log.Debug("page scraped",
		"url", url,
		"title", title,
		"content_len", len(content),
		"duration_ms", time.Since(start).Milliseconds())

	return models.ScrapedDocument{
		URL:       url,
		Title:     title,
		Content:   content,
		ScrapedAt: time.Now(),
		Success:   true,
	}
}

func (s *Scraper) failure(url, reason string) models.ScrapedDocument {
	s.log.Debug("scrape failed", "url", url, "reason", reason)
	return models.ScrapedDocument{
		URL:       url,
		ScrapedAt: time.Now(),
		Success:   false,
		Error:     reason,
	}
}

// extract pulls the title and the main body text out of a parsed page.
// Structural noise is removed first so neither the selector pass nor the
// whole-page fallback picks up scripts or navigation.
func extract(doc *goquery.Document) (title, content string) {
	doc.Find("script, style, nav, header, footer").Remove()

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = defaultTitle
	}

	for _, selector := range contentSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		parts := make([]string, 0, sel.Length())
		sel.Each(func(_ int, el *goquery.Selection) {
			parts = append(parts, strings.TrimSpace(el.Text()))
		})
		content = strings.Join(parts, " ")
		break
	}
	if content == "" {
		content = doc.Text()
	}

	content = normalize(content)
	// The cap is a character count; byte slicing would shortchange
	// non-ASCII pages and could split a rune.
	if utf8.RuneCountInString(content) > models.MaxContentLength {
		content = string([]rune(content)[:models.MaxContentLength])
	}
	return title, content
}

// normalize drops blank lines and joins the rest with single spaces.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}
