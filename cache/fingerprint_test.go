package cache

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Format(t *testing.T) {
	fp, err := Fingerprint("agent_query", map[string]any{"query": "What is AAPL?"})
	require.NoError(t, err)

	prefix, digest, ok := strings.Cut(fp, ":")
	require.True(t, ok)
	assert.Equal(t, "agent_query", prefix)
	assert.Len(t, digest, 16)
}

func TestFingerprint_DistinguishesInputs(t *testing.T) {
	a := MustFingerprint("agent_query", map[string]any{"query": "a"})
	b := MustFingerprint("agent_query", map[string]any{"query": "b"})
	c := MustFingerprint("stock_price", map[string]any{"query": "a"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFingerprint_NilEqualsEmpty(t *testing.T) {
	assert.Equal(t, MustFingerprint("op", nil), MustFingerprint("op", map[string]any{}))
}

func TestFingerprint_Unserializable(t *testing.T) {
	_, err := Fingerprint("op", map[string]any{"fn": func() {}})
	assert.Error(t, err)
	assert.Panics(t, func() { MustFingerprint("op", map[string]any{"ch": make(chan int)}) })
}

func TestFingerprint_OrderIndependenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	type pair struct {
		key string
		val int
	}

	build := func(keys []string, vals []int, reverse bool) map[string]any {
		var pairs []pair
		seen := make(map[string]bool)
		for i := 0; i < min(len(keys), len(vals)); i++ {
			if seen[keys[i]] {
				continue
			}
			seen[keys[i]] = true
			pairs = append(pairs, pair{keys[i], vals[i]})
		}

		m := make(map[string]any, len(pairs)+1)
		nested := make(map[string]any, len(pairs))
		for i := range pairs {
			p := pairs[i]
			if reverse {
				p = pairs[len(pairs)-1-i]
			}
			m[p.key] = p.val
			nested[p.key] = []any{p.val, p.key}
		}
		m["nested"] = nested
		return m
	}

	properties.Property("insertion order does not change the fingerprint", prop.ForAll(
		func(keys []string, vals []int) bool {
			p1 := build(keys, vals, false)
			p2 := build(keys, vals, true)
			return MustFingerprint("agent_query", p1) == MustFingerprint("agent_query", p2)
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Int()),
	))

	properties.Property("fingerprint is stable across calls", prop.ForAll(
		func(q string) bool {
			p := map[string]any{"query": q}
			return MustFingerprint("agent_query", p) == MustFingerprint("agent_query", map[string]any{"query": q})
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
