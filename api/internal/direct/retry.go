package direct

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
)

const maxAttempts = 3

// retryable reports whether a failed model call is worth repeating:
// rate limits, server-side failures and network timeouts. Bad requests,
// auth errors and cancellations are final.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ae *apierror.APIError
	if errors.As(err, &ae) {
		if code := ae.HTTPCode(); code > 0 {
			return transientHTTP(code)
		}
		switch ae.GRPCStatus().Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
			return true
		}
		return false
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return transientHTTP(ge.Code)
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func transientHTTP(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// backoff waits before attempt n+1, returning early with ctx's error when
// it is cancelled first.
func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * 300 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
