package capability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCapability() *Function {
	return NewFunction("echo_tool", "Echo a message back", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"message"},
	}, func(_ context.Context, p map[string]any) (any, error) {
		return "Echo: " + p["message"].(string), nil
	})
}

type tickerArgs struct {
	Ticker string `json:"ticker" description:"Stock ticker symbol"`
}

func TestRegistry_RegisterAndDispatch(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoCapability()))

	out, err := r.Dispatch(context.Background(), "echo_tool", map[string]any{"message": "Hello, Agent!"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: Hello, Agent!", out)
}

func TestRegistry_DuplicateCapability(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoCapability()))

	err := r.Register(echoCapability())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateCapability))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_InvalidCapability(t *testing.T) {
	r := NewRegistry()
	err := r.Register(NewFunction("", "nameless", nil, nil))
	assert.True(t, errors.Is(err, ErrInvalidCapability))

	err = r.Register(NewFunction("broken", "bad schema", map[string]any{"type": 7}, nil))
	assert.True(t, errors.Is(err, ErrInvalidCapability))
}

func TestRegistry_UnknownCapability(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCapability))
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistry_InvalidParameters(t *testing.T) {
	called := false
	r := NewRegistry()
	r.MustRegister(NewFunctionFromStruct("get_stock_price", "Quote", tickerArgs{}, func(context.Context, map[string]any) (any, error) {
		called = true
		return nil, nil
	}))

	tests := []struct {
		name   string
		params map[string]any
		field  string
	}{
		{name: "missing required", params: map[string]any{}, field: "ticker"},
		{name: "wrong type", params: map[string]any{"ticker": 42}, field: "ticker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Dispatch(context.Background(), "get_stock_price", tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameters))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.False(t, called, "handler must not run on invalid parameters")
}

func TestRegistry_ExecutionErrorKeepsMessage(t *testing.T) {
	sentinel := errors.New("ticker ZZZZ not found")
	r := NewRegistry()
	r.MustRegister(NewFunctionFromStruct("get_stock_price", "Quote", tickerArgs{}, func(context.Context, map[string]any) (any, error) {
		return nil, sentinel
	}))

	_, err := r.Dispatch(context.Background(), "get_stock_price", map[string]any{"ticker": "ZZZZ"})
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "get_stock_price", execErr.Capability)
	assert.Equal(t, "ticker ZZZZ not found", execErr.Message)
	assert.True(t, errors.Is(err, sentinel))
}

func TestRegistry_ExecutionErrorPassthrough(t *testing.T) {
	custom := &ExecutionError{Capability: "x", Message: "custom"}
	r := NewRegistry()
	r.MustRegister(NewFunction("x", "x", nil, func(context.Context, map[string]any) (any, error) {
		return nil, custom
	}))

	_, err := r.Dispatch(context.Background(), "x", nil)
	assert.Same(t, custom, err)
}

func TestRegistry_PanicBecomesExecutionError(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewFunction("explode", "panics", nil, func(context.Context, map[string]any) (any, error) {
		panic("kaboom")
	}))

	_, err := r.Dispatch(context.Background(), "explode", map[string]any{})
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Message, "kaboom")
}

func TestRegistry_DescriptorsInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		NewFunction("b_tool", "B", nil, nil),
		NewFunction("a_tool", "A", nil, nil),
	)

	descs := r.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "b_tool", descs[0].Name)
	assert.Equal(t, "A", descs[1].Description)
	assert.Equal(t, []string{"b_tool", "a_tool"}, r.Names())

	c, ok := r.Lookup("a_tool")
	require.True(t, ok)
	assert.Equal(t, "a_tool", c.Name())
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.MustRegister(echoCapability(), echoCapability()) })
}

func TestRegistry_ConcurrentDispatch(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoCapability())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Dispatch(context.Background(), "echo_tool", map[string]any{"message": "hi"})
			assert.NoError(t, err)
			assert.Equal(t, "Echo: hi", out)
		}()
	}
	wg.Wait()
}

func TestNewTypedFunction(t *testing.T) {
	f := NewTypedFunction("get_stock_price", "Quote", func(_ context.Context, args tickerArgs) (any, error) {
		return "ticker=" + args.Ticker, nil
	})

	assert.Equal(t, []string{"ticker"}, f.Schema()["required"])

	r := NewRegistry()
	require.NoError(t, r.Register(f))

	out, err := r.Dispatch(context.Background(), "get_stock_price", map[string]any{"ticker": "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "ticker=AAPL", out)

	_, err = r.Dispatch(context.Background(), "get_stock_price", map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestBind(t *testing.T) {
	args, err := Bind[tickerArgs](map[string]any{"ticker": "MSFT", "extra": 1})
	require.NoError(t, err)
	assert.Equal(t, "MSFT", args.Ticker)

	_, err = Bind[tickerArgs](map[string]any{"ticker": 42})
	assert.Error(t, err)
}
