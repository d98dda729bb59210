// Package voiceapi is a typed client for the remote voice-authentication API.
// Every authenticated call carries the caller's credential as a Bearer token;
// the client itself holds no credential.
package voiceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/metrics"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Client is the voice API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    m,
	}
}

// APIError is a non-2xx answer from the voice API.
type APIError struct {
	Status     int
	Message    string
	Confidence *float64
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("voice api: status %d", e.Status)
	}
	return fmt.Sprintf("voice api: %s (status %d)", e.Message, e.Status)
}

// Unwrap maps the status onto the domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrBadRequest
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	}
	if e.Status >= 500 {
		return domain.ErrUnavailable
	}
	return nil
}

// errorBody covers the error shapes the API uses: message, msg or error.
type errorBody struct {
	Message    string   `json:"message"`
	Msg        string   `json:"msg"`
	Error      string   `json:"error"`
	Confidence *float64 `json:"confidence"`
}

type call struct {
	endpoint string // metrics / log label
	method   string
	path     string
	token    string
	query    url.Values
	body     any
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	var reqBody io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", cl.endpoint, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, reqBody)
	if err != nil {
		return fmt.Errorf("build %s request: %w", cl.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPICall(cl.endpoint, 0, time.Since(start))
		c.logger.Warn("voice api unreachable", zap.String("endpoint", cl.endpoint), zap.Error(err))
		return fmt.Errorf("%s: %w: %v", cl.endpoint, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveAPICall(cl.endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		c.logger.Debug("voice api rejected call",
			zap.String("endpoint", cl.endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.endpoint, err)
	}
	return nil
}

func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Confidence = body.Confidence
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Msg != "":
			apiErr.Message = body.Msg
		case body.Error != "":
			apiErr.Message = body.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
