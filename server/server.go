// Package server exposes the agent, quote lookup, filing Q&A and cache
// administration over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hupe1980/stockmesh/agent"
	"github.com/hupe1980/stockmesh/logging"
	"github.com/hupe1980/stockmesh/market"
	"github.com/hupe1980/stockmesh/toolset"
)

// Config holds the HTTP settings loaded from the environment.
type Config struct {
	Addr         string        `default:":8000"`
	QueryTimeout time.Duration `split_words:"true" default:"120s"`
}

// Options configures a Server.
type Options struct {
	Config
	// Quotes backs GET /stock/{ticker}. Nil answers 503.
	Quotes market.Provider
	// Filings backs POST /filings/ask. Nil answers 503.
	Filings toolset.FilingSearcher
	// BatchConcurrency bounds POST /agent/batch.
	BatchConcurrency int
	Logger           logging.Logger
	Now              func() time.Time
}

// Server routes HTTP requests to an agent.
type Server struct {
	agent   *agent.Agent
	quotes  market.Provider
	filings toolset.FilingSearcher
	opts    Options
	logger  logging.Logger
	now     func() time.Time
	mux     *http.ServeMux
}

// New creates a Server for a.
func New(a *agent.Agent, optFns ...func(o *Options)) *Server {
	opts := Options{
		Config:           Config{Addr: ":8000", QueryTimeout: 120 * time.Second},
		BatchConcurrency: 4,
		Now:              time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		agent:   a,
		quotes:  opts.Quotes,
		filings: opts.Filings,
		opts:    opts,
		logger:  logging.OrNoOp(opts.Logger),
		now:     opts.Now,
		mux:     http.NewServeMux(),
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("POST /agent/query", s.handleAgentQuery)
	s.mux.HandleFunc("POST /agent/batch", s.handleAgentBatch)
	s.mux.HandleFunc("GET /stock/{ticker}", s.handleStock)
	s.mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("POST /cache/clear", s.handleCacheClear)
	s.mux.HandleFunc("POST /filings/ask", s.handleFilingsAsk)
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server.listen", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server.shutdown", "addr", s.opts.Addr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", s.now().Sub(start).Milliseconds(),
		)
	})
}
