package filings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeChunks reads a JSON array of chunks.
func DecodeChunks(r io.Reader) ([]Chunk, error) {
	var chunks []Chunk
	if err := json.NewDecoder(r).Decode(&chunks); err != nil {
		return nil, fmt.Errorf("filings: decode chunks: %w", err)
	}
	return chunks, nil
}

// SeedFile adds the chunks stored in the JSON file at path to ix and
// returns how many were added.
func SeedFile(ctx context.Context, ix Index, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("filings: open seed file: %w", err)
	}
	defer f.Close()

	chunks, err := DecodeChunks(f)
	if err != nil {
		return 0, err
	}
	if err := ix.Add(ctx, chunks...); err != nil {
		return 0, err
	}

	return len(chunks), nil
}
