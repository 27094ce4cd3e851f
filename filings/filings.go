// Package filings answers questions from indexed SEC filing excerpts.
//
// Chunks are retrieved from an index (in-memory or Postgres), numbered as
// citations and handed to a model together with the question. Chunking and
// embedding of raw filings happen upstream; an index only stores text.
package filings

import (
	"context"
	"fmt"
	"strings"
)

// Chunk is one indexed excerpt of a filing.
type Chunk struct {
	ID         string  `json:"id"`
	Ticker     string  `json:"ticker"`
	FilingType string  `json:"filing_type"`
	Section    string  `json:"section"`
	Content    string  `json:"content"`
	Score      float64 `json:"score,omitempty"`
}

// Filter restricts retrieval. Empty fields match everything.
type Filter struct {
	Ticker     string `json:"ticker,omitempty"`
	Section    string `json:"section,omitempty"`
	FilingType string `json:"filing_type,omitempty"`
}

// Normalize uppercases the ticker and filing type and trims all fields.
func (f Filter) Normalize() Filter {
	return Filter{
		Ticker:     strings.ToUpper(strings.TrimSpace(f.Ticker)),
		Section:    strings.TrimSpace(f.Section),
		FilingType: strings.ToUpper(strings.TrimSpace(f.FilingType)),
	}
}

func (f Filter) matches(c Chunk) bool {
	if f.Ticker != "" && !strings.EqualFold(f.Ticker, c.Ticker) {
		return false
	}
	if f.Section != "" && !strings.EqualFold(f.Section, c.Section) {
		return false
	}
	if f.FilingType != "" && !strings.EqualFold(f.FilingType, c.FilingType) {
		return false
	}
	return true
}

// Retriever returns the topK most relevant chunks for query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, filter Filter, topK int) ([]Chunk, error)
}

// Index is a Retriever that can also be written to.
type Index interface {
	Retriever
	Add(ctx context.Context, chunks ...Chunk) error
	DeleteByTicker(ctx context.Context, ticker string) (int, error)
}

// Citation renders the human readable source line of c.
func Citation(c Chunk) string {
	ticker := c.Ticker
	if ticker == "" {
		ticker = "N/A"
	}
	section := c.Section
	if section == "" {
		section = "N/A"
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", ticker, c.FilingType)) + " - " + section
}
