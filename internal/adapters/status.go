package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/dshills/prgate/internal/review"
)

const maxErrorBody = 512

// statusError maps a failed host response onto a review error kind.
func statusError(host string, code int, header http.Header, body []byte, what string) error {
	msg := fmt.Sprintf("%s: %s returned %d", what, host, code)
	if detail := strings.TrimSpace(string(body)); detail != "" {
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody] + "..."
		}
		msg += ": " + detail
	}
	switch {
	case code == http.StatusUnauthorized:
		return review.Errorf(review.KindAuth, "%s", msg)
	case code == http.StatusForbidden && rateLimited(header):
		return review.Errorf(review.KindRateLimited, "%s", msg)
	case code == http.StatusForbidden:
		return review.Errorf(review.KindAuth, "%s", msg)
	case code == http.StatusNotFound:
		return review.Errorf(review.KindNotFound, "%s", msg)
	case code == http.StatusTooManyRequests:
		return review.Errorf(review.KindRateLimited, "%s", msg)
	case code >= 500:
		return review.Errorf(review.KindTransient, "%s", msg)
	default:
		return review.Errorf(review.KindInvalidRequest, "%s", msg)
	}
}

func rateLimited(h http.Header) bool {
	return h.Get("X-RateLimit-Remaining") == "0" || h.Get("Retry-After") != "" || h.Get("RateLimit-Remaining") == "0"
}

// transportError classifies a request that never produced a response.
func transportError(host, what string, err error) error {
	if errors.Is(err, context.Canceled) {
		return review.NewError(review.KindCanceled, what, err)
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return review.NewError(review.KindTransient, fmt.Sprintf("%s: %s timed out", what, host), err)
	}
	return review.NewError(review.KindTransient, fmt.Sprintf("%s: %s unreachable", what, host), err)
}

// postError narrows a posting failure to the kinds posting may report.
func postError(err error) error {
	if err == nil {
		return nil
	}
	switch review.KindOf(err) {
	case review.KindAuth, review.KindTransient, review.KindCanceled:
		return err
	case review.KindRateLimited:
		return review.NewError(review.KindTransient, "posting review", err)
	default:
		return review.NewError(review.KindPost, "posting review", err)
	}
}

// abortsPost reports whether a failed request should stop the rest of a
// multi-request post.
func abortsPost(err error) bool {
	switch review.KindOf(err) {
	case review.KindAuth, review.KindTransient, review.KindRateLimited, review.KindCanceled:
		return true
	}
	return false
}
