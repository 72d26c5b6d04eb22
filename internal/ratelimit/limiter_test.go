package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWait(t *testing.T) {
	l := NewLimiter("polygon", 120)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "polygon", l.Name())
}

func TestLimiterBackoff(t *testing.T) {
	l := NewLimiter("polygon", 60)

	initial := l.Backoff()
	l.SignalRateLimited()
	doubled := l.Backoff()
	assert.Greater(t, doubled, initial)

	l.SignalRateLimited()
	assert.Greater(t, l.Backoff(), doubled)

	l.ResetBackoff()
	assert.Equal(t, initial, l.Backoff())
}

func TestLimiterBackoffCap(t *testing.T) {
	l := NewLimiter("polygon", 60)
	for i := 0; i < 30; i++ {
		l.SignalRateLimited()
	}
	assert.Equal(t, maxBackoff, l.Backoff())
}

func TestLimiterContextCancellation(t *testing.T) {
	l := NewLimiter("polygon", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Drain the burst so Wait must actually block.
	require.NoError(t, l.Wait(context.Background()))
	assert.Error(t, l.Wait(ctx))
}

func TestSleepHonorsContext(t *testing.T) {
	l := NewLimiter("polygon", 60)
	l.SignalRateLimited()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Sleep(ctx))
}
