package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// YahooConfig configures the Yahoo Finance chart client.
type YahooConfig struct {
	BaseURL           string        `split_words:"true" default:"https://query1.finance.yahoo.com"`
	Timeout           time.Duration `split_words:"true" default:"10s"`
	RequestsPerSecond float64       `split_words:"true" default:"2"`
	UserAgent         string        `split_words:"true" default:"stockmesh/1.0"`
}

// YahooClient fetches quotes from the public v8 chart endpoint. Requests
// are paced by a token bucket shared by all callers.
type YahooClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewYahooClient creates a client from cfg.
func NewYahooClient(cfg YahooConfig) (*YahooClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &YahooClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		now:        time.Now,
	}, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol               string   `json:"symbol"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	PreviousClose        *float64 `json:"previousClose"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	RegularMarketVolume  *int64   `json:"regularMarketVolume"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
	MarketCap            *int64   `json:"marketCap"`
}

// Quote implements Provider.
func (c *YahooClient) Quote(ctx context.Context, ticker string) (Quote, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return Quote{}, fmt.Errorf("%w: empty ticker", ErrNotFound)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("%w: decode chart: %v", ErrUpstream, err)
	}
	if payload.Chart.Error != nil {
		return Quote{}, fmt.Errorf("%w: %s: %s", ErrNotFound, ticker, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return Quote{}, fmt.Errorf("%w: %s has no price", ErrNotFound, ticker)
	}

	q := Quote{
		Ticker:     ticker,
		Price:      meta.RegularMarketPrice,
		Volume:     meta.RegularMarketVolume,
		MarketCap:  meta.MarketCap,
		DayHigh:    meta.RegularMarketDayHigh,
		DayLow:     meta.RegularMarketDayLow,
		Week52High: meta.FiftyTwoWeekHigh,
		Week52Low:  meta.FiftyTwoWeekLow,
		Timestamp:  c.now(),
	}

	prev := meta.PreviousClose
	if prev == nil {
		prev = meta.ChartPreviousClose
	}
	derive(&q, prev)

	return q, nil
}
