package agent

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/stockmesh/cache"
	"github.com/hupe1980/stockmesh/capability"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/logging"
)

// QueryOperation is the fingerprint operation class of cached responses.
const QueryOperation = "agent_query"

// ErrMissingDependency is returned by New when the registry or policy is nil.
var ErrMissingDependency = errors.New("agent: missing dependency")

// Options configures an Agent.
type Options struct {
	// Instructions is the system text placed at the head of each transcript.
	Instructions string
	// MaxIterations is the default round ceiling.
	MaxIterations int
	// EnableCache turns the response cache on or off for all queries.
	EnableCache bool
	// CacheTTL is the freshness window of cached responses.
	CacheTTL time.Duration
	// Cache stores answered responses. Defaults to an in-memory cache.
	Cache cache.Cache[core.AgentResponse]
	// LogReasoningSteps records "Agent:" and "Tool" steps in the metadata.
	LogReasoningSteps bool
	// ModelName is reported in the metadata. Defaults to the policy's model
	// name when the policy exposes one.
	ModelName string
	Logger    logging.Logger
	Now       func() time.Time
}

// Agent runs the bounded decide/execute loop. It is safe for concurrent use;
// every query owns its own run state and only the cache is shared.
type Agent struct {
	registry *capability.Registry
	policy   Policy
	cache    cache.Cache[core.AgentResponse]
	opts     Options
	logger   logging.Logger
	now      func() time.Time
}

// New creates an agent dispatching to registry and deciding with policy.
func New(registry *capability.Registry, policy Policy, optFns ...func(o *Options)) (*Agent, error) {
	if registry == nil || policy == nil {
		return nil, ErrMissingDependency
	}

	opts := Options{
		Instructions:      DefaultInstructions,
		MaxIterations:     10,
		EnableCache:       true,
		CacheTTL:          300 * time.Second,
		LogReasoningSteps: true,
		Now:               time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache[core.AgentResponse](cache.WithClock(opts.Now))
	}
	if opts.ModelName == "" {
		if named, ok := policy.(interface{ ModelName() string }); ok {
			opts.ModelName = named.ModelName()
		}
	}

	return &Agent{
		registry: registry,
		policy:   policy,
		cache:    opts.Cache,
		opts:     opts,
		logger:   logging.OrNoOp(opts.Logger),
		now:      opts.Now,
	}, nil
}

// QueryOptions tune a single query.
type QueryOptions struct {
	// UseCache allows the cache for this query. It has no effect when the
	// agent was built with caching disabled.
	UseCache bool
	// MaxIterations overrides the agent's round ceiling when positive.
	MaxIterations int
}

// WithoutCache bypasses the cache for one query.
func WithoutCache() func(o *QueryOptions) {
	return func(o *QueryOptions) { o.UseCache = false }
}

// WithMaxIterations overrides the round ceiling for one query.
func WithMaxIterations(n int) func(o *QueryOptions) {
	return func(o *QueryOptions) { o.MaxIterations = n }
}

// Cache returns the response cache.
func (a *Agent) Cache() cache.Cache[core.AgentResponse] { return a.cache }

// Registry returns the capability registry.
func (a *Agent) Registry() *capability.Registry { return a.registry }

// Query answers text. It always returns a well-formed response; policy
// failures are reported through the answer and the termination reason.
func (a *Agent) Query(ctx context.Context, text string, optFns ...func(o *QueryOptions)) core.AgentResponse {
	qopts := QueryOptions{UseCache: true, MaxIterations: a.opts.MaxIterations}
	for _, fn := range optFns {
		fn(&qopts)
	}
	if qopts.MaxIterations < 1 {
		qopts.MaxIterations = a.opts.MaxIterations
	}

	start := a.now()
	useCache := qopts.UseCache && a.opts.EnableCache

	var key string
	if useCache {
		var err error
		key, err = cache.Fingerprint(QueryOperation, map[string]any{
			"query":          text,
			"max_iterations": qopts.MaxIterations,
		})
		if err != nil {
			a.logger.Warn("agent.cache.fingerprint_failed", "error", err)
			useCache = false
		}
	}

	if useCache {
		cached, ok, err := a.cache.Get(ctx, key, a.opts.CacheTTL)
		switch {
		case err != nil:
			a.logger.Warn("agent.cache.get_failed", "key", key, "error", err)
		case ok:
			resp := cached.Clone()
			resp.Metadata.CacheHit = true
			resp.Metadata.ElapsedMs = a.now().Sub(start).Milliseconds()
			a.logger.Info("agent.query.cache_hit", "key", key, "run_id", resp.RunID)
			return resp
		}
	}

	resp := a.run(ctx, newRunState(text, a.opts.Instructions, qopts.MaxIterations, start))

	if useCache && resp.Metadata.TerminationReason == core.TerminationAnswered {
		if err := a.cache.Set(ctx, key, resp.Clone()); err != nil {
			a.logger.Warn("agent.cache.set_failed", "key", key, "error", err)
		}
	}

	return resp
}

// run drives the state machine for one query until a terminal state.
func (a *Agent) run(ctx context.Context, st *runState) core.AgentResponse {
	a.logger.Info("agent.query.start", "run_id", st.runID, "max_iterations", st.limiter.Max())

	for {
		if err := st.limiter.Next(); err != nil {
			a.logger.Warn("agent.query.max_iterations", "run_id", st.runID, "iterations", st.limiter.Count())
			answer := st.transcript.LastPolicyText()
			if answer == "" {
				answer = MaxIterationsAnswer
			}
			return a.aggregate(st, core.TerminationMaxIterations, answer, "")
		}

		decision, err := a.policy.Decide(ctx, st.transcript.Turns())
		if err != nil {
			perr := NewPolicyError(err)
			a.logger.Error("agent.policy.failed", "run_id", st.runID, "kind", string(perr.Kind), "error", perr)
			st.steps = append(st.steps, "Error occurred: "+perr.Error())
			return a.aggregate(st, core.TerminationError, "Error: "+perr.Error(), perr.Error())
		}

		st.transcript.Append(core.PolicyOutput{Text: decision.Text, Requests: decision.Requests})
		if a.opts.LogReasoningSteps && decision.Text != "" {
			st.steps = append(st.steps, "Agent: "+decision.Text)
		}

		if decision.IsFinal() {
			a.logger.Info("agent.query.answered", "run_id", st.runID, "iterations", st.limiter.Count())
			return a.aggregate(st, core.TerminationAnswered, decision.Text, "")
		}

		for _, req := range decision.Requests {
			inv := a.execute(ctx, req)
			st.record(inv)
			if a.opts.LogReasoningSteps {
				st.steps = append(st.steps, "Tool "+inv.Name+": "+summarize(inv.OutputText(), 100))
			}
		}
	}
}

// execute dispatches one request and converts any failure into an
// error-flagged invocation.
func (a *Agent) execute(ctx context.Context, req core.CapabilityRequest) core.CapabilityInvocation {
	started := a.now()
	out, err := a.registry.Dispatch(ctx, req.Name, req.Params)

	inv := core.CapabilityInvocation{
		ID:       req.ID,
		Name:     req.Name,
		Params:   req.Params,
		Output:   out,
		Duration: a.now().Sub(started),
	}

	if err != nil {
		inv.Output = failureText(err)
		inv.IsError = true
		a.logger.Warn("agent.capability.failed", "capability", req.Name, "error", err)
	}

	return inv
}

// failureText prefers the handler's own message for execution errors.
func failureText(err error) string {
	var execErr *capability.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Message
	}
	return err.Error()
}

func summarize(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
