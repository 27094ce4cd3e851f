// Package market provides live quote lookup for the get_stock_price
// capability.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNotFound is returned when the provider knows no such ticker.
	ErrNotFound = errors.New("market: ticker not found")
	// ErrUpstream is returned for transport or decoding failures.
	ErrUpstream = errors.New("market: upstream failure")
)

// Quote is a point-in-time market snapshot. Nil fields were not reported by
// the provider and render as N/A.
type Quote struct {
	Ticker        string    `json:"ticker"`
	Price         *float64  `json:"price"`
	Change        *float64  `json:"change"`
	ChangePercent *float64  `json:"change_percent"`
	Volume        *int64    `json:"volume"`
	MarketCap     *int64    `json:"market_cap"`
	DayHigh       *float64  `json:"day_high"`
	DayLow        *float64  `json:"day_low"`
	Week52High    *float64  `json:"week_52_high"`
	Week52Low     *float64  `json:"week_52_low"`
	Timestamp     time.Time `json:"timestamp"`
}

// Provider looks up quotes.
type Provider interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, ticker string) (Quote, error)

// Quote implements Provider.
func (f ProviderFunc) Quote(ctx context.Context, ticker string) (Quote, error) { return f(ctx, ticker) }

// NormalizeTicker uppercases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Format renders q as the multi-line block handed to the policy.
func Format(q Quote) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Stock Information for %s:\n", q.Ticker)
	fmt.Fprintf(&b, "- Current Price: %s\n", dollars(q.Price))

	if q.Change != nil && q.ChangePercent != nil {
		fmt.Fprintf(&b, "- Change: %s (%.2f%%)\n", dollars(q.Change), *q.ChangePercent)
	} else {
		fmt.Fprintf(&b, "- Change: %s\n", dollars(q.Change))
	}

	fmt.Fprintf(&b, "- Volume: %s\n", count(q.Volume))
	if q.MarketCap != nil {
		fmt.Fprintf(&b, "- Market Cap: $%s\n", humanize.Comma(*q.MarketCap))
	} else {
		b.WriteString("- Market Cap: N/A\n")
	}
	fmt.Fprintf(&b, "- Day Range: %s - %s\n", dollars(q.DayLow), dollars(q.DayHigh))
	fmt.Fprintf(&b, "- 52-Week Range: %s - %s\n", dollars(q.Week52Low), dollars(q.Week52High))
	fmt.Fprintf(&b, "- Data Timestamp: %s", q.Timestamp.Format(time.RFC3339))

	return b.String()
}

// FormatError renders a failed lookup the way the capability reports it.
func FormatError(ticker string, err error) string {
	return fmt.Sprintf("Error fetching stock data for %s: %v", ticker, err)
}

func dollars(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func count(v *int64) string {
	if v == nil {
		return "N/A"
	}
	return humanize.Comma(*v)
}

// derive fills Change and ChangePercent from the previous close when the
// provider did not report them.
func derive(q *Quote, previousClose *float64) {
	if q.Change != nil || q.Price == nil || previousClose == nil || *previousClose == 0 {
		return
	}
	change := *q.Price - *previousClose
	pct := change / *previousClose * 100
	q.Change = &change
	q.ChangePercent = &pct
}
