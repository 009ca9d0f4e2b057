package models

import "time"

// MaxContentLength caps extracted page content, counted in characters,
// not bytes. Anything beyond this is discarded at extraction time, so
// downstream code can rely on the bound.
const MaxContentLength = 5000

// ScrapedDocument is the outcome of fetching and extracting one URL.
// It is a result record, not an error: failed fetches set Success=false
// and carry the reason in Error. Only the URL survives past ingestion;
// the document itself lives as long as the index built from it.
type ScrapedDocument struct {
	URL       string
	Title     string
	Content   string
	ScrapedAt time.Time
	Success   bool
	Error     string
}

// Chunk is a contiguous text window cut from one scraped document,
// carrying the document's metadata for citation.
type Chunk struct {
	Text      string
	URL       string
	Title     string
	ScrapedAt time.Time
}
