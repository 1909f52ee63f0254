package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"contentflow/internal/services"
)

const stageName = "publishing"

// HTTPDoer describes the HTTP client relays use.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-2xx response from a relay endpoint.
type StatusError struct {
	Method     Method
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s relay returned %d %s", e.Method, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s relay returned %d %s: %s", e.Method, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

type request struct {
	method      Method
	httpMethod  string
	url         string
	bearer      string
	contentType string
	body        []byte
	headers     map[string]string
}

func jsonRequest(method Method, target string, payload any) (request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("encode %s payload: %w", method, err)
	}
	return request{method: method, httpMethod: http.MethodPost, url: target, contentType: "application/json", body: body}, nil
}

func formRequest(method Method, target string, form url.Values) request {
	return request{
		method:      method,
		httpMethod:  http.MethodPost,
		url:         target,
		contentType: "application/x-www-form-urlencoded",
		body:        []byte(form.Encode()),
	}
}

// send performs req and returns the response body. Network failures are
// transient; non-2xx responses carry a StatusError.
func send(ctx context.Context, client HTTPDoer, req request) ([]byte, http.Header, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpMethod := req.httpMethod
	if httpMethod == "" {
		httpMethod = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, httpMethod, req.url, reader)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, stageName, string(req.method), "Invalid relay URL", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, services.Wrap(services.ErrTimeout, stageName, string(req.method), "Relay request timed out", err)
		}
		return nil, nil, services.Wrap(services.ErrTransient, stageName, string(req.method), "Relay request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, stageName, string(req.method), "Read relay response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: req.method, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return nil, nil, services.Wrap(marker, stageName, string(req.method),
			fmt.Sprintf("Failed to post via %s", req.method), statusErr)
	}
	return data, resp.Header, nil
}
