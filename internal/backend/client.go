package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrTransport marks failures that never produced an HTTP response.
var ErrTransport = errors.New("network error")

// APIError is a non-2xx answer from the backend. Message is the backend's
// own text when it sent one, otherwise a per-operation fallback.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Message turns err into the line shown to the user.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrTransport) {
		return "Network error."
	}
	return fallback
}

// Client talks to the delivery backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	calls   atomic.Int64
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Calls is the number of requests issued so far.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("prepare %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.calls.Add(1)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, method, path, token, body, "application/json")
}

// decodeError reads the backend's error body. "message" may be a string or
// an array of strings; arrays are joined with ", ".
func decodeError(resp *http.Response, fallback string) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: fallback}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Message) == 0 {
		return apiErr
	}
	var single string
	if err := json.Unmarshal(payload.Message, &single); err == nil {
		if strings.TrimSpace(single) != "" {
			apiErr.Message = single
		}
		return apiErr
	}
	var many []string
	if err := json.Unmarshal(payload.Message, &many); err == nil && len(many) > 0 {
		apiErr.Message = strings.Join(many, ", ")
	}
	return apiErr
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// text is a JSON scalar that may arrive as a string, a number, a bool or
// null; it keeps the literal text of non-strings.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		*t = ""
		return nil
	}
	*t = text(trimmed)
	return nil
}

func firstNonEmpty(values ...text) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
