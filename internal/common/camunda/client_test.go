package camunda

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "bvester-assessment/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "connection refused"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "deadline"), true},
		{"context deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), true},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "backpressure"), true},
		{"not found", status.Error(codes.NotFound, "process definition not found"), false},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad variables"), false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestWithRetry_RecoversFromTransientErrors(t *testing.T) {
	c := testClient()
	calls := 0

	err := c.withRetry(context.Background(), "topology", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_MapsFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
		wantCode  apperrors.ErrorCode
	}{
		{"permanent error is not retried", status.Error(codes.NotFound, "no such job"), 1, "BUSINESS_RULE_VIOLATION"},
		{"exhausted deadlines map to timeout", status.Error(codes.DeadlineExceeded, "deadline"), 3, "TIMEOUT_ERROR"},
		{"exhausted unavailability maps to external service", status.Error(codes.Unavailable, "down"), 3, "EXTERNAL_SERVICE_ERROR"},
		{"unknown error maps to external service", errors.New("boom"), 1, "EXTERNAL_SERVICE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := testClient().withRetry(context.Background(), "topology", func(ctx context.Context) error {
				calls++
				return tt.err
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), err.Error())
		})
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	c := testClient()
	c.config.RetryConfig.BaseDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.withRetry(ctx, "topology", func(ctx context.Context) error {
		return status.Error(codes.Unavailable, "down")
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "TIMEOUT_ERROR"))
}
