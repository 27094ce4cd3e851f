// Package stockmesh is the high-level façade of the stock research agent.
// It registers the toolset capabilities, builds a policy from a model and
// returns a ready Agent:
//
//	sm, err := stockmesh.New(openai.NewModel(), func(o *stockmesh.Options) {
//		o.Quotes = yahooClient
//		o.Filings = qaEngine
//	})
//	resp := sm.Query(ctx, "What is AAPL trading at?", true)
package stockmesh

import (
	"context"
	"errors"

	"github.com/hupe1980/stockmesh/agent"
	"github.com/hupe1980/stockmesh/capability"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/logging"
	"github.com/hupe1980/stockmesh/market"
	"github.com/hupe1980/stockmesh/model"
	"github.com/hupe1980/stockmesh/toolset"
)

// ErrNoModel is returned by New when no model is supplied.
var ErrNoModel = errors.New("stockmesh: model is required")

// Options configures a StockMesh.
type Options struct {
	// Quotes backs get_stock_price. Nil leaves quote capabilities out.
	Quotes market.Provider
	// Filings backs search_sec_filings. Nil leaves filing capabilities out.
	Filings toolset.FilingSearcher
	// Capabilities are registered after the toolset.
	Capabilities []capability.Capability
	// Toolset tunes the built-in capabilities.
	Toolset []func(o *toolset.Options)
	// Agent tunes the execution loop.
	Agent  []func(o *agent.Options)
	Logger logging.Logger
}

// StockMesh bundles the registry and the agent.
type StockMesh struct {
	registry *capability.Registry
	agent    *agent.Agent
}

// New builds a StockMesh whose policy is driven by m.
func New(m model.Model, optFns ...func(o *Options)) (*StockMesh, error) {
	if m == nil {
		return nil, ErrNoModel
	}

	return build(func(reg *capability.Registry) agent.Policy {
		return agent.NewModelPolicy(m, reg.Descriptors())
	}, optFns...)
}

// NewWithPolicy builds a StockMesh around a custom policy.
func NewWithPolicy(policy agent.Policy, optFns ...func(o *Options)) (*StockMesh, error) {
	return build(func(*capability.Registry) agent.Policy { return policy }, optFns...)
}

func build(policyFor func(reg *capability.Registry) agent.Policy, optFns ...func(o *Options)) (*StockMesh, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	reg := capability.NewRegistry(func(o *capability.RegistryOptions) { o.Logger = logger })

	tsOpts := append([]func(o *toolset.Options){func(o *toolset.Options) { o.Logger = logger }}, opts.Toolset...)
	if err := toolset.New(opts.Quotes, opts.Filings, tsOpts...).Register(reg); err != nil {
		return nil, err
	}
	for _, c := range opts.Capabilities {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	agentOpts := append([]func(o *agent.Options){func(o *agent.Options) { o.Logger = logger }}, opts.Agent...)
	a, err := agent.New(reg, policyFor(reg), agentOpts...)
	if err != nil {
		return nil, err
	}

	return &StockMesh{registry: reg, agent: a}, nil
}

// Query answers text through the agent. useCache=false bypasses the
// response cache for this call only.
func (s *StockMesh) Query(ctx context.Context, text string, useCache bool) core.AgentResponse {
	if useCache {
		return s.agent.Query(ctx, text)
	}
	return s.agent.Query(ctx, text, agent.WithoutCache())
}

// Agent returns the underlying agent.
func (s *StockMesh) Agent() *agent.Agent { return s.agent }

// Registry returns the capability registry.
func (s *StockMesh) Registry() *capability.Registry { return s.registry }
