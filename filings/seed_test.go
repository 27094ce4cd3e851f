package filings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChunks(t *testing.T) {
	chunks, err := DecodeChunks(strings.NewReader(`[
		{"ticker":"aapl","filing_type":"10-K","section":"Business","content":"Apple designs smartphones."},
		{"id":"x","ticker":"MSFT","filing_type":"10-K","section":"Risk Factors","content":"Competition is intense."}
	]`))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "x", chunks[1].ID)

	_, err = DecodeChunks(strings.NewReader(`{"ticker":"AAPL"}`))
	assert.Error(t, err)
}

func TestSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"ticker":"aapl","filing_type":"10-K","section":"Business","content":"Apple designs smartphones."}
	]`), 0o600))

	ix := NewInMemoryIndex()
	n, err := SeedFile(context.Background(), ix, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, ix.Len())

	got, err := ix.Search(context.Background(), "smartphones", Filter{Ticker: "AAPL"}, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Ticker)

	_, err = SeedFile(context.Background(), ix, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
