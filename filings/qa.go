package filings

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/logging"
	"github.com/hupe1980/stockmesh/model"
)

// Source is a retrieved chunk as cited in an answer. ID is the citation
// number.
type Source struct {
	ID       int     `json:"id"`
	Content  string  `json:"content"`
	Ticker   string  `json:"ticker"`
	Filing   string  `json:"filing_type"`
	Section  string  `json:"section"`
	Score    float64 `json:"score"`
	Citation string  `json:"formatted_citation"`
}

// AnswerMetadata reports cost drivers of an answer.
type AnswerMetadata struct {
	Model            string `json:"model,omitempty"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	RetrievalMs      int64  `json:"retrieval_time_ms"`
	GenerationMs     int64  `json:"generation_time_ms"`
	SourcesCount     int    `json:"sources_count"`
}

// Answer is the result of QAEngine.Ask.
type Answer struct {
	Text     string         `json:"answer"`
	Sources  []Source       `json:"sources"`
	Metadata AnswerMetadata `json:"metadata"`
}

// QAOptions configures a QAEngine.
type QAOptions struct {
	Logger logging.Logger
	Now    func() time.Time
}

// QAEngine answers questions by retrieval plus generation.
type QAEngine struct {
	retriever Retriever
	model     model.Model
	logger    logging.Logger
	now       func() time.Time
}

// NewQAEngine creates an engine reading from r and generating with m.
func NewQAEngine(r Retriever, m model.Model, optFns ...func(o *QAOptions)) *QAEngine {
	opts := QAOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &QAEngine{
		retriever: r,
		model:     m,
		logger:    logging.OrNoOp(opts.Logger),
		now:       opts.Now,
	}
}

// Ask retrieves up to topK chunks matching filter and asks the model to
// answer from them. When nothing is retrieved the fixed no-context answer
// is returned and the model is not called.
func (e *QAEngine) Ask(ctx context.Context, question string, filter Filter, topK int) (Answer, error) {
	start := e.now()

	chunks, err := e.retriever.Search(ctx, question, filter, topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}
	retrieval := e.now().Sub(start)

	e.logger.Debug("filings.ask.retrieved", "chunks", len(chunks), "ticker", filter.Ticker, "section", filter.Section)

	if len(chunks) == 0 {
		return Answer{
			Text:     NoContextResponse,
			Sources:  []Source{},
			Metadata: AnswerMetadata{RetrievalMs: retrieval.Milliseconds()},
		}, nil
	}

	genStart := e.now()
	resp, err := e.model.Generate(ctx, model.Request{Turns: []core.Turn{
		core.Instruction{Text: SystemPrompt},
		core.UserQuery{Text: BuildPrompt(FormatContext(chunks), question)},
	}})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]Source, len(chunks))
	for i, c := range chunks {
		sources[i] = Source{
			ID:       i + 1,
			Content:  c.Content,
			Ticker:   c.Ticker,
			Filing:   c.FilingType,
			Section:  c.Section,
			Score:    c.Score,
			Citation: Citation(c),
		}
	}

	meta := AnswerMetadata{
		Model:        e.model.Info().Name,
		RetrievalMs:  retrieval.Milliseconds(),
		GenerationMs: e.now().Sub(genStart).Milliseconds(),
		SourcesCount: len(sources),
	}
	if resp.Usage != nil {
		meta.PromptTokens = resp.Usage.PromptTokens
		meta.CompletionTokens = resp.Usage.CompletionTokens
		meta.TotalTokens = resp.Usage.TotalTokens
	}

	return Answer{Text: resp.Text, Sources: sources, Metadata: meta}, nil
}
