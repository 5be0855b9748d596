package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitErrorIsTransient(t *testing.T) {
	err := NewRateLimitError(errors.New("429 too many requests"), 2*time.Second)
	assert.True(t, IsTransient(err))

	wrapped := eris.Wrap(err, "mistral: chat")
	assert.True(t, IsTransient(wrapped))
}

func TestRateLimitWait(t *testing.T) {
	err := NewRateLimitError(errors.New("429"), 5*time.Second)
	wait, ok := RateLimitWait(err)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, wait)

	wait, ok = RateLimitWait(eris.Wrap(err, "mistral: chat"))
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, wait)

	_, ok = RateLimitWait(errors.New("plain"))
	assert.False(t, ok)
}

func TestRetryDelayHonorsRetryAfter(t *testing.T) {
	cfg := DefaultRetryConfig()

	rle := NewRateLimitError(errors.New("429"), 7*time.Second)
	assert.Equal(t, 7*time.Second, retryDelay(0, cfg, rle))

	// No Retry-After: escalating floor, doubling per attempt.
	bare := NewRateLimitError(errors.New("429"), 0)
	assert.Equal(t, rateLimitFloor, retryDelay(0, cfg, bare))
	assert.Equal(t, 2*rateLimitFloor, retryDelay(1, cfg, bare))

	// Plain transient errors follow the backoff curve, well under the floor.
	te := NewTransientError(errors.New("503"), 503)
	assert.Less(t, retryDelay(0, cfg, te), rateLimitFloor)
}

func TestDoRetriesRateLimit(t *testing.T) {
	ctx := context.Background()
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFraction: 0,
	}

	calls := 0
	err := Do(ctx, cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewRateLimitError(errors.New("429"), time.Millisecond)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
