package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackoff(attempts int) Backoff {
	return Backoff{
		Initial:  time.Millisecond,
		Max:      5 * time.Millisecond,
		Attempts: attempts,
		Factor:   2.0,
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "radarr-main", testBackoff(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp 127.0.0.1:7878: connection refused")
		}
		return nil
	}, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_NonTransientFailsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("unexpected status 401")
	err := WithRetry(context.Background(), "sonarr-main", testBackoff(3), func() error {
		calls++
		return wantErr
	}, zerolog.Nop())

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls, "an auth failure will not heal with time")
}

func TestWithRetry_ExhaustsSchedule(t *testing.T) {
	calls := 0
	wantErr := errors.New("connection refused")
	err := WithRetry(context.Background(), "overseerr-main", testBackoff(3), func() error {
		calls++
		return wantErr
	}, zerolog.Nop())

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, "radarr-main", testBackoff(5), func() error {
		calls++
		return errors.New("connection refused")
	}, zerolog.Nop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"container still starting", errors.New("dial tcp 172.18.0.4:8989: connect: connection refused"), true},
		{"dns not ready", errors.New("lookup radarr: no such host"), true},
		{"timeout", errors.New("context deadline exceeded (Client.Timeout exceeded): i/o timeout"), true},
		{"bad credentials", errors.New("unexpected status 401"), false},
		{"bad config", errors.New("missing base url"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
