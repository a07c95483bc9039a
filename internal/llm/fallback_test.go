package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	reply string
	errs  []error
	calls int
}

func (s *stubProvider) Explain(_ context.Context, _, _ string) (string, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	return s.reply, nil
}

func (s *stubProvider) Close() error { return nil }

func (s *stubProvider) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{"provider": "stub"}
}

func limited(p Provider) *RateLimitedProvider {
	return NewRateLimitedProvider(p, 60, zap.NewNop())
}

func TestFallbackUsesFirstProvider(t *testing.T) {
	primary := &stubProvider{reply: "primary"}
	secondary := &stubProvider{reply: "secondary"}
	client := newFallbackOver([]*RateLimitedProvider{limited(primary), limited(secondary)}, 3, zap.NewNop())

	got, err := client.Explain(context.Background(), "text", "English")
	require.NoError(t, err)
	assert.Equal(t, "primary", got)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)
}

func TestFallbackSwitchesOnRateLimit(t *testing.T) {
	primary := &stubProvider{errs: []error{errors.New("status 429: quota exceeded")}}
	secondary := &stubProvider{reply: "secondary"}
	client := newFallbackOver([]*RateLimitedProvider{limited(primary), limited(secondary)}, 3, zap.NewNop())

	got, err := client.Explain(context.Background(), "text", "English")
	require.NoError(t, err)
	assert.Equal(t, "secondary", got)
}

func TestFallbackSwitchesAfterMaxFailures(t *testing.T) {
	boom := errors.New("upstream unavailable")
	primary := &stubProvider{errs: []error{boom, boom, boom}}
	secondary := &stubProvider{reply: "secondary"}
	client := newFallbackOver([]*RateLimitedProvider{limited(primary), limited(secondary)}, 1, zap.NewNop())

	got, err := client.Explain(context.Background(), "text", "English")
	require.NoError(t, err)
	assert.Equal(t, "secondary", got)
}

func TestFallbackAllProvidersFail(t *testing.T) {
	boom := errors.New("upstream unavailable")
	primary := &stubProvider{errs: []error{boom, boom}}
	client := newFallbackOver([]*RateLimitedProvider{limited(primary)}, 3, zap.NewNop())

	_, err := client.Explain(context.Background(), "text", "English")
	assert.Error(t, err)
}

func TestRateLimiterAllowsBurstUpToLimit(t *testing.T) {
	rl := NewRateLimiter(5)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
	assert.Less(t, time.Since(start), time.Second, "initial bucket should not block")
}

func TestRateLimiterHonorsCancellation(t *testing.T) {
	rl := NewRateLimiter(1)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
