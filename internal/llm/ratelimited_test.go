package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurtsever/promopipe/internal/common"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	raw json.RawMessage
	err error
}

func (p *scriptedProvider) Complete(_ context.Context, _ string) (json.RawMessage, error) {
	if p.calls >= len(p.responses) {
		return nil, errors.New("scripted provider exhausted")
	}
	r := p.responses[p.calls]
	p.calls++
	return r.raw, r.err
}

// newTestClient builds a client with instant, recorded sleeps.
func newTestClient(provider Provider, cfg Config) (*RateLimitedClient, *[]time.Duration) {
	client := NewRateLimitedClient(provider, cfg, nil)
	var slept []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	client.jitter = func() time.Duration { return 0 }
	return client, &slept
}

func TestCallSuccess(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{raw: json.RawMessage(`{"ok":true}`)},
	}}
	client, _ := newTestClient(provider, Config{})

	raw, err := client.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 1, provider.calls)
}

func TestCallPacesBetweenCalls(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{raw: json.RawMessage(`{}`)},
		{raw: json.RawMessage(`{}`)},
	}}
	client, slept := newTestClient(provider, Config{MinInterval: time.Second})

	ctx := context.Background()
	_, err := client.Call(ctx, "first")
	require.NoError(t, err)
	_, err = client.Call(ctx, "second")
	require.NoError(t, err)

	// First call goes out immediately; the second waits out the interval.
	require.Len(t, *slept, 1)
	assert.Greater(t, (*slept)[0], time.Duration(0))
	assert.LessOrEqual(t, (*slept)[0], time.Second)
}

func TestCallRetriesThrottling(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: common.ErrRateLimited},
		{err: common.ErrRateLimited},
		{raw: json.RawMessage(`{"ok":true}`)},
	}}
	client, slept := newTestClient(provider, Config{BaseDelay: time.Second, MaxThrottled: 4})

	raw, err := client.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 3, provider.calls)

	// Exponential: 1s then 2s.
	assert.Contains(t, *slept, time.Second)
	assert.Contains(t, *slept, 2*time.Second)
}

func TestCallThrottleBudgetExhausted(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: common.ErrRateLimited},
		{err: common.ErrRateLimited},
		{err: common.ErrRateLimited},
	}}
	client, _ := newTestClient(provider, Config{MaxThrottled: 2})

	_, err := client.Call(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Equal(t, 3, provider.calls)
}

func TestCallRetriesMalformed(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: common.ErrMalformedResponse},
		{raw: json.RawMessage(`{"ok":true}`)},
	}}
	client, _ := newTestClient(provider, Config{})

	raw, err := client.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestCallMalformedBudgetExhausted(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: common.ErrMalformedResponse},
		{err: common.ErrMalformedResponse},
		{err: common.ErrMalformedResponse},
	}}
	client, _ := newTestClient(provider, Config{MaxMalformed: 2})

	_, err := client.Call(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestCallFatalErrorReturnsImmediately(t *testing.T) {
	fatal := errors.New("service exploded")
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: fatal},
	}}
	client, _ := newTestClient(provider, Config{})

	_, err := client.Call(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, provider.calls)
}

func TestCallCancelledContext(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: common.ErrRateLimited},
	}}
	client := NewRateLimitedClient(provider, Config{}, nil)
	client.jitter = func() time.Duration { return 0 }
	client.sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Call(ctx, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
