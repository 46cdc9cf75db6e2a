package http

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiterEnforcesWindow(t *testing.T) {
	l := NewLocalRateLimiter()
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "caller-1", 3)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := l.Allow(ctx, "caller-1", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other callers have their own window.
	ok, err = l.Allow(ctx, "caller-2", 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalRateLimiterCloseIsIdempotent(t *testing.T) {
	l := NewLocalRateLimiter()
	l.Close()
	l.Close()

	// A closed limiter still answers; only the background sweep stops.
	ok, err := l.Allow(context.Background(), "caller-1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
