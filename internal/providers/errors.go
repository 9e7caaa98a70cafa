package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/prgate/internal/review"
)

// quotaMarkers identify responses reporting exhausted quota or billing.
var quotaMarkers = []string{
	"insufficient_quota",
	"quota",
	"billing",
	"credit balance",
	"resource_exhausted",
}

// classifyStatus converts a non-2xx response into a typed error.
func classifyStatus(backend string, status int, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > 300 {
		text = text[:300] + "..."
	}
	msg := fmt.Sprintf("%s API error (status %d): %s", backend, status, text)
	lower := strings.ToLower(text)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return review.Errorf(review.KindAuth, "%s", msg)
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired || status == http.StatusBadRequest:
		for _, m := range quotaMarkers {
			if strings.Contains(lower, m) {
				return review.Errorf(review.KindQuotaExceeded, "%s", msg)
			}
		}
		if status == http.StatusTooManyRequests {
			return review.Errorf(review.KindRateLimited, "%s", msg)
		}
		return review.Errorf(review.KindTransient, "%s", msg)
	default:
		return review.Errorf(review.KindTransient, "%s", msg)
	}
}

// classifyTransport converts a client-side failure into a typed error.
// Timeouts and network failures are transient; cancellation is kept distinct.
func classifyTransport(ctx context.Context, backend string, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return review.NewError(review.KindCanceled, backend+" request canceled", ctx.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout() {
		return review.NewError(review.KindTransient, fmt.Sprintf("%s request timed out after %s", backend, timeout), err)
	}
	return review.NewError(review.KindTransient, backend+" request failed", err)
}

// malformed reports an unusable 200 response. The chain treats it as transient.
func malformed(backend, format string, args ...any) error {
	return review.Errorf(review.KindTransient, "%s: %s", backend, fmt.Sprintf(format, args...))
}
