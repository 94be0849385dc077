package api

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
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxTries = 3
	retryBaseDelay  = 200 * time.Millisecond
	tracerName      = "github.com/gravitrone/concierge/internal/api"
)

// ErrNotFound matches responses with HTTP 404, via errors.Is.
var ErrNotFound = errors.New("not found")

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports 404 responses as ErrNotFound.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client wraps HTTP calls to the assistant REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	maxTries   uint
	tracer     trace.Tracer
}

// NewClient creates a new API client. The optional timeout bounds each
// call including retries.
func NewClient(baseURL, apiKey string, timeout ...time.Duration) *Client {
	callTimeout := defaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		callTimeout = timeout[0]
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    callTimeout,
		maxTries:   defaultMaxTries,
		tracer:     otel.Tracer(tracerName),
	}
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAPIKey updates the bearer token used for subsequent requests.
func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}

// WithTimeout clones the client with a different call timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	clone := *c
	if timeout > 0 {
		clone.timeout = timeout
	}
	return &clone
}

// WithMaxTries clones the client with a different GET attempt budget.
// One disables retries.
func (c *Client) WithMaxTries(n uint) *Client {
	clone := *c
	if n < 1 {
		n = 1
	}
	clone.maxTries = n
	return &clone
}

type rawResponse struct {
	body   []byte
	status int
}

// do executes an HTTP request and returns the raw response body. GETs are
// retried with exponential backoff on network errors and 5xx responses;
// everything else is attempted once.
func (c *Client) do(method, path string, body any) ([]byte, int, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if method != http.MethodGet || c.maxTries <= 1 {
		resp, err := c.send(ctx, method, path, payload)
		return resp.body, resp.status, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryBaseDelay
	resp, err := backoff.Retry(ctx, func() (rawResponse, error) {
		resp, err := c.send(ctx, method, path, payload)
		if err != nil && !retryable(resp.status, err) {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(c.maxTries))
	return resp.body, resp.status, err
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (rawResponse, error) {
	route := path
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	ctx, span := c.tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
	)

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return rawResponse{}, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return rawResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResponse{status: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		herr := newHTTPError(resp.StatusCode, respBody)
		span.SetStatus(codes.Error, herr.Message)
		return rawResponse{status: resp.StatusCode}, herr
	}
	return rawResponse{body: respBody, status: resp.StatusCode}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func retryable(status int, err error) bool {
	if status >= 500 {
		return true
	}
	// No status means the round trip itself failed.
	return status == 0 && !errors.Is(err, context.Canceled)
}

// get performs a GET request.
func (c *Client) get(path string) ([]byte, error) {
	body, _, err := c.do(http.MethodGet, path, nil)
	return body, err
}

// post performs a POST request.
func (c *Client) post(path string, body any) ([]byte, error) {
	b, _, err := c.do(http.MethodPost, path, body)
	return b, err
}

// patch performs a PATCH request.
func (c *Client) patch(path string, body any) ([]byte, error) {
	b, _, err := c.do(http.MethodPatch, path, body)
	return b, err
}

// del performs a DELETE request.
func (c *Client) del(path string) ([]byte, error) {
	b, _, err := c.do(http.MethodDelete, path, nil)
	return b, err
}

// decodeOne decodes a single-item response, bare or wrapped in {"data": ...}.
func decodeOne[T any](data []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(unwrapEnvelope(data), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// decodeList decodes a list response, bare or wrapped in {"data": [...]}.
func decodeList[T any](data []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(unwrapEnvelope(data), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// checkResult turns an {"ok": false, "error": "..."} body into an error.
// Empty and non-object bodies count as success.
func checkResult(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var result MutationResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil
	}
	if result.OK != nil && !*result.OK {
		msg := strings.TrimSpace(result.Error)
		if msg == "" {
			msg = "request rejected"
		}
		return errors.New(msg)
	}
	return nil
}

func unwrapEnvelope(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	inner, ok := envelope["data"]
	if !ok {
		return trimmed
	}
	for key := range envelope {
		if key != "data" && key != "error" && key != "ok" {
			return trimmed
		}
	}
	return inner
}

// buildQuery appends query params to a path.
func buildQuery(path string, params QueryParams) string {
	if len(params) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func newHTTPError(status int, body []byte) *HTTPError {
	if msg, ok := extractAPIErrorBody(body); ok {
		return &HTTPError{StatusCode: status, Message: msg}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(status)
	}
	return &HTTPError{StatusCode: status, Message: fmt.Sprintf("HTTP %d: %s", status, text)}
}

func extractAPIErrorBody(body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	if msg, ok := parseErrorValue(payload["error"]); ok {
		return msg, true
	}
	if msg, ok := parseErrorValue(payload["detail"]); ok {
		return msg, true
	}
	if msg, ok := parseErrorValue(payload["message"]); ok {
		return msg, true
	}
	return "", false
}

func parseErrorValue(raw any) (string, bool) {
	switch value := raw.(type) {
	case string:
		msg := strings.TrimSpace(value)
		if msg == "" {
			return "", false
		}
		return msg, true
	case map[string]any:
		if nested, ok := parseErrorValue(value["error"]); ok {
			return nested, true
		}
		code, _ := value["code"].(string)
		message, _ := value["message"].(string)
		return formatAPIError(code, message)
	}
	return "", false
}

func formatAPIError(code, message string) (string, bool) {
	code = strings.TrimSpace(code)
	message = strings.TrimSpace(message)
	switch {
	case code != "" && message != "":
		return fmt.Sprintf("%s: %s", code, message), true
	case code != "":
		return code, true
	case message != "":
		return message, true
	default:
		return "", false
	}
}
