package direct

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func wrapAPI(t *testing.T, err error) error {
	t.Helper()
	ae, ok := apierror.FromError(err)
	require.True(t, ok)
	return fmt.Errorf("generate: %w", ae)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"http 503", &googleapi.Error{Code: 503}, true},
		{"http 429", &googleapi.Error{Code: 429}, true},
		{"http 400", &googleapi.Error{Code: 400}, false},
		{"http 403", &googleapi.Error{Code: 403}, false},
		{"api 500", wrapAPI(t, &googleapi.Error{Code: 500}), true},
		{"api 404", wrapAPI(t, &googleapi.Error{Code: 404}), false},
		{"grpc unavailable", wrapAPI(t, status.Error(codes.Unavailable, "down")), true},
		{"grpc invalid", wrapAPI(t, status.Error(codes.InvalidArgument, "bad image")), false},
		{"net timeout", fmt.Errorf("post: %w", timeoutErr{}), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, retryable(tc.err))
		})
	}
}

func TestBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := backoff(ctx, maxAttempts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	require.NoError(t, backoff(context.Background(), 0))
}
