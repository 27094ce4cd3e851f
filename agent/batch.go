package agent

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/hupe1980/stockmesh/core"
)

// QueryBatch answers several queries concurrently with at most concurrency
// loops in flight. Results are returned in input order.
func (a *Agent) QueryBatch(ctx context.Context, queries []string, concurrency int, optFns ...func(o *QueryOptions)) []core.AgentResponse {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]core.AgentResponse, len(queries))
	p := pool.New().WithMaxGoroutines(concurrency)

	for i, q := range queries {
		p.Go(func() {
			results[i] = a.Query(ctx, q, optFns...)
		})
	}
	p.Wait()

	return results
}
