package toolset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stockmesh/capability"
	"github.com/hupe1980/stockmesh/filings"
	"github.com/hupe1980/stockmesh/market"
	"github.com/hupe1980/stockmesh/model"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// stubQuotes returns a fixed AAPL quote and fails for anything else.
var stubQuotes = market.ProviderFunc(func(_ context.Context, ticker string) (market.Quote, error) {
	if market.NormalizeTicker(ticker) != "AAPL" {
		return market.Quote{}, errors.New("no data found, symbol may be delisted")
	}
	return market.Quote{
		Ticker:        "AAPL",
		Price:         f64(178.23),
		Change:        f64(2.45),
		ChangePercent: f64(1.39),
		Volume:        i64(52_000_000),
		MarketCap:     i64(2_800_000_000_000),
		DayHigh:       f64(179.1),
		DayLow:        f64(176.5),
		Week52High:    f64(199.62),
		Week52Low:     f64(124.17),
	}, nil
})

type stubSearcher struct {
	answer filings.Answer
	err    error
	got    []filings.Filter
	topK   int
}

func (s *stubSearcher) Ask(_ context.Context, _ string, filter filings.Filter, topK int) (filings.Answer, error) {
	s.got = append(s.got, filter)
	s.topK = topK
	return s.answer, s.err
}

func newRegistry(t *testing.T, ts *Toolset) *capability.Registry {
	t.Helper()
	r := capability.NewRegistry()
	require.NoError(t, ts.Register(r))
	return r
}

func TestCapabilities(t *testing.T) {
	assert.Len(t, New(nil, nil).Capabilities(), 1)
	assert.Len(t, New(stubQuotes, nil).Capabilities(), 2)

	r := newRegistry(t, New(stubQuotes, &stubSearcher{}))
	assert.Equal(t, []string{EchoName, StockPriceName, SearchFilingsName, CompareName}, r.Names())
}

func TestEcho(t *testing.T) {
	r := newRegistry(t, New(nil, nil))
	out, err := r.Dispatch(context.Background(), EchoName, map[string]any{"message": "Hello, Agent!"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: Hello, Agent!", out)
}

func TestStockPrice(t *testing.T) {
	r := newRegistry(t, New(stubQuotes, nil))

	out, err := r.Dispatch(context.Background(), StockPriceName, map[string]any{"ticker": "AAPL"})
	require.NoError(t, err)
	text := out.(string)
	assert.Contains(t, text, "178.23")
	assert.Contains(t, text, "Stock Information for AAPL:")
	assert.Contains(t, text, "- Change: $2.45 (1.39%)")
	assert.Contains(t, text, "- Market Cap: $2,800,000,000,000")
}

func TestStockPrice_Failure(t *testing.T) {
	r := newRegistry(t, New(stubQuotes, nil))

	_, err := r.Dispatch(context.Background(), StockPriceName, map[string]any{"ticker": "ZZZZ"})
	var execErr *capability.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.True(t, strings.HasPrefix(execErr.Message, "Error fetching stock data for ZZZZ:"))

	_, err = r.Dispatch(context.Background(), StockPriceName, map[string]any{})
	assert.ErrorIs(t, err, capability.ErrInvalidParameters)
}

func TestSearchFilings(t *testing.T) {
	s := &stubSearcher{answer: filings.Answer{
		Text: "Revenue was $391.0 billion [1].",
		Sources: []filings.Source{
			{ID: 1, Ticker: "AAPL", Filing: "10-K", Section: "Financial Statements"},
			{ID: 2, Ticker: "AAPL", Filing: "10-K", Section: "Business"},
			{ID: 3, Ticker: "AAPL", Filing: "10-Q"},
			{ID: 4, Ticker: "AAPL", Filing: "10-Q", Section: "Risk Factors"},
		},
	}}
	r := newRegistry(t, New(nil, s))

	out, err := r.Dispatch(context.Background(), SearchFilingsName, map[string]any{
		"question": "What is revenue?",
		"ticker":   "aapl",
		"section":  "Financial Statements",
	})
	require.NoError(t, err)

	want := "Revenue was $391.0 billion [1].\n\nSources from SEC Filings:" +
		"\n- AAPL 10-K - Financial Statements" +
		"\n- AAPL 10-K - Business" +
		"\n- AAPL 10-Q - N/A"
	assert.Equal(t, want, out)
	assert.Equal(t, []filings.Filter{{Ticker: "AAPL", Section: "Financial Statements"}}, s.got)
	assert.Equal(t, 3, s.topK)
}

func TestSearchFilings_NoSources(t *testing.T) {
	s := &stubSearcher{answer: filings.Answer{Text: filings.NoContextResponse}}
	r := newRegistry(t, New(nil, s))

	out, err := r.Dispatch(context.Background(), SearchFilingsName, map[string]any{"question": "dividends?"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.(string), "Note: No relevant SEC filing data found for this query."))
}

func TestSearchFilings_Failure(t *testing.T) {
	s := &stubSearcher{err: errors.New("index offline")}
	r := newRegistry(t, New(nil, s))

	_, err := r.Dispatch(context.Background(), SearchFilingsName, map[string]any{"question": "q"})
	var execErr *capability.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "Error searching SEC filings: index offline", execErr.Message)
}

func TestCompare(t *testing.T) {
	s := &stubSearcher{answer: filings.Answer{Text: "Revenue grew [1].", Sources: []filings.Source{{Ticker: "AAPL", Filing: "10-K", Section: "MD&A"}}}}
	r := newRegistry(t, New(stubQuotes, s))

	out, err := r.Dispatch(context.Background(), CompareName, map[string]any{"ticker": "AAPL", "question": "revenue"})
	require.NoError(t, err)

	text := out.(string)
	assert.True(t, strings.HasPrefix(text, "CURRENT MARKET DATA:\nStock Information for AAPL:"))
	assert.Contains(t, text, "HISTORICAL SEC FILING DATA:\nRevenue grew [1].")
	assert.Contains(t, text, "Analysis: The above data combines")
	assert.Contains(t, text, "context for AAPL.")
}

func TestCompare_PartialFailure(t *testing.T) {
	s := &stubSearcher{answer: filings.Answer{Text: "Nothing."}}
	r := newRegistry(t, New(stubQuotes, s))

	out, err := r.Dispatch(context.Background(), CompareName, map[string]any{"ticker": "ZZZZ", "question": "q"})
	require.NoError(t, err)
	assert.Contains(t, out.(string), "Error fetching stock data for ZZZZ")
	assert.Contains(t, out.(string), "HISTORICAL SEC FILING DATA:\nNothing.")
}

func TestSearchFilings_WithQAEngine(t *testing.T) {
	ctx := context.Background()
	ix := filings.NewInMemoryIndex()
	require.NoError(t, ix.Add(ctx, filings.Chunk{ID: "1", Ticker: "AAPL", FilingType: "10-K", Section: "Risk Factors", Content: "Supply chain risk in Asia."}))

	engine := filings.NewQAEngine(ix, model.NewScriptedModel("m", model.Response{Text: "Supply chain risk [1]."}))
	r := newRegistry(t, New(nil, engine))

	out, err := r.Dispatch(ctx, SearchFilingsName, map[string]any{"question": "supply chain risk", "ticker": "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "Supply chain risk [1].\n\nSources from SEC Filings:\n- AAPL 10-K - Risk Factors", out)
}
