package filings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// InMemoryIndex is a process-local Index scored by query term overlap. It
// is meant for tests, demos and small corpora.
type InMemoryIndex struct {
	mu     sync.RWMutex
	chunks []Chunk
	seq    int
}

// NewInMemoryIndex creates an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{}
}

// Add stores chunks, replacing any chunk with the same id. Chunks without
// an id get a sequential one.
func (ix *InMemoryIndex) Add(_ context.Context, chunks ...Chunk) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, c := range chunks {
		if c.ID == "" {
			ix.seq++
			c.ID = fmt.Sprintf("chunk_%d", ix.seq)
		}
		c.Ticker = strings.ToUpper(c.Ticker)
		c.Score = 0

		replaced := false
		for i := range ix.chunks {
			if ix.chunks[i].ID == c.ID {
				ix.chunks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			ix.chunks = append(ix.chunks, c)
		}
	}

	return nil
}

// DeleteByTicker removes every chunk of ticker and returns how many went.
func (ix *InMemoryIndex) DeleteByTicker(_ context.Context, ticker string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.chunks[:0]
	removed := 0
	for _, c := range ix.chunks {
		if strings.EqualFold(c.Ticker, ticker) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	ix.chunks = kept

	return removed, nil
}

// Len returns the number of stored chunks.
func (ix *InMemoryIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Search implements Retriever. The score is the share of distinct query
// terms found in the chunk; chunks without any match are skipped. An empty
// query matches every chunk that passes the filter with score 1.
func (ix *InMemoryIndex) Search(_ context.Context, query string, filter Filter, topK int) ([]Chunk, error) {
	if topK <= 0 {
		return []Chunk{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	terms := tokenize(query)
	filter = filter.Normalize()

	results := make([]Chunk, 0, topK)
	for _, c := range ix.chunks {
		if !filter.matches(c) {
			continue
		}

		score := 1.0
		if len(terms) > 0 {
			words := make(map[string]struct{})
			for _, w := range tokenize(c.Content + " " + c.Section) {
				words[w] = struct{}{}
			}
			hits := 0
			for _, t := range terms {
				if _, ok := words[t]; ok {
					hits++
				}
			}
			if hits == 0 {
				continue
			}
			score = float64(hits) / float64(len(terms))
		}

		c.Score = score
		results = append(results, c)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "does": {}, "for": {}, "how": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "the": {}, "to": {},
	"was": {}, "what": {}, "which": {}, "with": {},
}

// tokenize returns the distinct lowercase non-stop-word terms of s.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
