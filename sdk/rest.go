package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bud-foundry/foundry-go/pkg/core"
)

// do issues a gateway request and returns the raw response body. Responses
// with status >= 400 are mapped to *core.APIError; 204 yields a nil body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, string, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "foundry.rest "+method+" "+path,
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.route", path),
			))
		defer span.End()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", core.NewTimeoutError(method+" "+path, 0)
		}
		return nil, "", core.NewConnectionError(requestURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", core.NewConnectionError(requestURL, err)
	}

	if resp.StatusCode >= 400 {
		var errBody any
		if err := json.Unmarshal(data, &errBody); err != nil {
			errBody = string(data)
		}
		return nil, "", core.NewAPIError(resp.StatusCode, errBody, requestURL, method)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, "", nil
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return data, contentType, nil
}

// doJSON issues a request and decodes a JSON response into out. A nil out
// discards the body.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	data, contentType, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if contentType != "" && contentType != "application/json" && !strings.HasSuffix(contentType, "+json") {
		return core.NewGatewayError("unexpected content type "+contentType, "")
	}
	return json.Unmarshal(data, out)
}

// doBytes issues a request and returns the raw body, for audio endpoints.
func (c *Client) doBytes(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	data, _, err := c.do(ctx, method, path, query, body)
	return data, err
}
