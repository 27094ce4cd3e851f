package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hupe1980/stockmesh/agent"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/filings"
	"github.com/hupe1980/stockmesh/market"
)

const (
	defaultMaxIterations = 5
	maxMaxIterations     = 10
	defaultTopK          = 5
	maxTopK              = 20
)

type queryRequest struct {
	Question      string `json:"question"`
	MaxIterations *int   `json:"max_iterations"`
	UseCache      *bool  `json:"use_cache"`
}

type batchRequest struct {
	Questions     []string `json:"questions"`
	MaxIterations *int     `json:"max_iterations"`
	UseCache      *bool    `json:"use_cache"`
}

type batchResponse struct {
	Results []core.AgentResponse `json:"results"`
}

type filingsRequest struct {
	Question   string `json:"question"`
	Ticker     string `json:"ticker"`
	Section    string `json:"section"`
	FilingType string `json:"filing_type"`
	TopK       *int   `json:"top_k"`
}

type stockResponse struct {
	market.Quote
	Error string `json:"error,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"message":      "Stock research agent is running",
		"capabilities": s.agent.Registry().Names(),
		"endpoints": map[string]string{
			"agent":       "POST /agent/query",
			"agent_batch": "POST /agent/batch",
			"stock":       "GET /stock/{ticker}",
			"filings":     "POST /filings/ask",
			"cache_stats": "GET /cache/stats",
			"cache_clear": "POST /cache/clear",
		},
	})
}

func (s *Server) handleAgentQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	optFns, err := queryOptions(req.MaxIterations, req.UseCache)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	writeJSON(w, http.StatusOK, s.agent.Query(ctx, req.Question, optFns...))
}

func (s *Server) handleAgentBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "questions are required")
		return
	}
	for i, q := range req.Questions {
		if strings.TrimSpace(q) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("question %d is empty", i))
			return
		}
	}

	optFns, err := queryOptions(req.MaxIterations, req.UseCache)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	results := s.agent.QueryBatch(ctx, req.Questions, s.opts.BatchConcurrency, optFns...)
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		writeError(w, http.StatusServiceUnavailable, "quote provider is not configured")
		return
	}

	ticker := market.NormalizeTicker(r.PathValue("ticker"))
	q, err := s.quotes.Quote(r.Context(), ticker)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, market.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.logger.Warn("server.stock.failed", "ticker", ticker, "error", err.Error())
		writeJSON(w, status, stockResponse{
			Quote: market.Quote{Ticker: ticker, Timestamp: s.now().UTC()},
			Error: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{Quote: q})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.agent.Cache().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("cache stats: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.Cache().Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("cache clear: %v", err))
		return
	}
	s.logger.Info("server.cache.cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleFilingsAsk(w http.ResponseWriter, r *http.Request) {
	if s.filings == nil {
		writeError(w, http.StatusServiceUnavailable, "filing search is not configured")
		return
	}

	var req filingsRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	topK := defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 1 || topK > maxTopK {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be between 1 and %d", maxTopK))
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	filter := filings.Filter{Ticker: req.Ticker, Section: req.Section, FilingType: req.FilingType}
	answer, err := s.filings.Ask(ctx, req.Question, filter, topK)
	if err != nil {
		s.logger.Error("server.filings.failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Q&A error: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.opts.QueryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.opts.QueryTimeout)
}

func queryOptions(maxIterations *int, useCache *bool) ([]func(o *agent.QueryOptions), error) {
	n := defaultMaxIterations
	if maxIterations != nil {
		n = *maxIterations
	}
	if n < 1 || n > maxMaxIterations {
		return nil, fmt.Errorf("max_iterations must be between 1 and %d", maxMaxIterations)
	}

	optFns := []func(o *agent.QueryOptions){agent.WithMaxIterations(n)}
	if useCache != nil && !*useCache {
		optFns = append(optFns, agent.WithoutCache())
	}
	return optFns, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
