package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dshills/prgate/internal/review"
)

const maxResponseBytes = 32 << 20

// restClient is the JSON transport shared by the hand-written REST hosts.
type restClient struct {
	host string
	base string
	hc   *http.Client
	auth func(*http.Request)
}

// do sends a request and decodes the response into out. A *string out
// receives the raw body.
func (c *restClient) do(ctx context.Context, method, path string, in, out any, what string) error {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.base + path
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", c.host, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return transportError(c.host, what, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(c.host, what, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(c.host, resp.StatusCode, resp.Header, data, what)
	}

	switch v := out.(type) {
	case nil:
		return nil
	case *string:
		*v = string(data)
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return review.NewError(review.KindTransient, fmt.Sprintf("%s: malformed response from %s", what, c.host), err)
		}
		return nil
	}
}
