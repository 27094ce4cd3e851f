// Package toolset provides the capabilities the stock agent can call.
package toolset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/stockmesh/capability"
	"github.com/hupe1980/stockmesh/filings"
	"github.com/hupe1980/stockmesh/logging"
	"github.com/hupe1980/stockmesh/market"
)

// Capability names.
const (
	StockPriceName    = "get_stock_price"
	SearchFilingsName = "search_sec_filings"
	CompareName       = "compare_stock_and_filings"
	EchoName          = "echo_tool"
)

// FilingSearcher answers questions from SEC filings.
type FilingSearcher interface {
	Ask(ctx context.Context, question string, filter filings.Filter, topK int) (filings.Answer, error)
}

// Options configures a Toolset.
type Options struct {
	// TopK is the number of filing chunks retrieved per search.
	TopK int
	// MaxSources caps the sources listed under an answer.
	MaxSources int
	Logger     logging.Logger
}

// Toolset builds capabilities over a quote provider and a filing searcher.
// Either dependency may be nil; the capabilities needing it are then left
// out of Capabilities.
type Toolset struct {
	quotes   market.Provider
	searcher FilingSearcher
	opts     Options
	logger   logging.Logger
}

// New creates a Toolset.
func New(quotes market.Provider, searcher FilingSearcher, optFns ...func(o *Options)) *Toolset {
	opts := Options{TopK: 3, MaxSources: 3}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TopK < 1 {
		opts.TopK = 3
	}
	if opts.MaxSources < 1 {
		opts.MaxSources = opts.TopK
	}

	return &Toolset{
		quotes:   quotes,
		searcher: searcher,
		opts:     opts,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Capabilities returns every capability whose dependencies are present.
func (t *Toolset) Capabilities() []capability.Capability {
	caps := []capability.Capability{Echo()}
	if t.quotes != nil {
		caps = append(caps, t.StockPrice())
	}
	if t.searcher != nil {
		caps = append(caps, t.SearchFilings())
	}
	if t.quotes != nil && t.searcher != nil {
		caps = append(caps, t.Compare())
	}
	return caps
}

// Register adds the toolset's capabilities to r.
func (t *Toolset) Register(r *capability.Registry) error {
	for _, c := range t.Capabilities() {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

type echoArgs struct {
	Message string `json:"message" description:"The message to echo back"`
}

// Echo returns the echo_tool capability used to exercise the loop.
func Echo() *capability.Function {
	return capability.NewTypedFunction(EchoName,
		"Simple echo tool for testing the agent infrastructure. Returns the message prefixed with 'Echo: '.",
		func(_ context.Context, args echoArgs) (any, error) {
			return "Echo: " + args.Message, nil
		})
}

type stockPriceArgs struct {
	Ticker string `json:"ticker" description:"Stock ticker symbol (e.g., AAPL, MSFT, TSLA)"`
}

// StockPrice returns the get_stock_price capability. A failed lookup is
// reported as a capability error carrying the formatted message.
func (t *Toolset) StockPrice() *capability.Function {
	return capability.NewTypedFunction(StockPriceName,
		"Get current stock price and key metrics for a ticker symbol. Use this when you need current market data.",
		func(ctx context.Context, args stockPriceArgs) (any, error) {
			out, err := t.quote(ctx, args.Ticker)
			if err != nil {
				return nil, errors.New(out)
			}
			return out, nil
		})
}

// quote returns the formatted quote, or the formatted failure plus an error.
func (t *Toolset) quote(ctx context.Context, ticker string) (string, error) {
	q, err := t.quotes.Quote(ctx, ticker)
	if err != nil {
		t.logger.Warn("toolset.quote.failed", "ticker", ticker, "error", err)
		return market.FormatError(ticker, err), err
	}
	return market.Format(q), nil
}

type searchArgs struct {
	Question string `json:"question" description:"Question about company operations, financials, risks or strategy"`
	Ticker   string `json:"ticker,omitempty" description:"Optional stock ticker to filter results (e.g., AAPL)"`
	Section  string `json:"section,omitempty" description:"Optional section filter (e.g., Risk Factors, Business)"`
}

// SearchFilings returns the search_sec_filings capability.
func (t *Toolset) SearchFilings() *capability.Function {
	return capability.NewTypedFunction(SearchFilingsName,
		"Search SEC filings (10-K, 10-Q) to answer questions about companies. Use this for historical financial data, business descriptions and risk factors.",
		func(ctx context.Context, args searchArgs) (any, error) {
			out, err := t.search(ctx, args.Question, args.Ticker, args.Section)
			if err != nil {
				return nil, errors.New(out)
			}
			return out, nil
		})
}

func (t *Toolset) search(ctx context.Context, question, ticker, section string) (string, error) {
	filter := filings.Filter{Ticker: ticker, Section: section}.Normalize()

	ans, err := t.searcher.Ask(ctx, question, filter, t.opts.TopK)
	if err != nil {
		t.logger.Warn("toolset.search.failed", "ticker", filter.Ticker, "error", err)
		return fmt.Sprintf("Error searching SEC filings: %v", err), err
	}

	var b strings.Builder
	b.WriteString(ans.Text)

	if len(ans.Sources) == 0 {
		b.WriteString("\n\nNote: No relevant SEC filing data found for this query.")
		return b.String(), nil
	}

	b.WriteString("\n\nSources from SEC Filings:")
	for i, src := range ans.Sources {
		if i == t.opts.MaxSources {
			break
		}
		ticker := src.Ticker
		if ticker == "" {
			ticker = "N/A"
		}
		sec := src.Section
		if sec == "" {
			sec = "N/A"
		}
		fmt.Fprintf(&b, "\n- %s %s - %s", ticker, src.Filing, sec)
	}

	return b.String(), nil
}

type compareArgs struct {
	Ticker   string `json:"ticker" description:"Stock ticker symbol (e.g., AAPL, MSFT)"`
	Question string `json:"question" description:"Question about the company (e.g., revenue, growth, strategy)"`
}

// Compare returns the compare_stock_and_filings capability. Failures of
// either source are embedded as text so the other half still reaches the
// policy.
func (t *Toolset) Compare() *capability.Function {
	return capability.NewTypedFunction(CompareName,
		"Compare current stock data with historical SEC filing information for a company. Use this when you need both live market performance and historical context.",
		func(ctx context.Context, args compareArgs) (any, error) {
			stock, _ := t.quote(ctx, args.Ticker)
			filing, _ := t.search(ctx, args.Question, args.Ticker, "")

			return fmt.Sprintf("CURRENT MARKET DATA:\n%s\n\nHISTORICAL SEC FILING DATA:\n%s\n\n"+
				"Analysis: The above data combines current live stock market information with historical data from official SEC filings, providing both real-time and historical context for %s.",
				stock, filing, args.Ticker), nil
		})
}
