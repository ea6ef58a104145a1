// Package chatclient is the HTTP client for the chat backend's /api/chat endpoint.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ChatPath is the backend endpoint every turn is posted to.
const ChatPath = "/api/chat"

// RoleUser is the only role the widget ever sends.
const RoleUser = "user"

// Message is one entry of the conversation array sent to the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the JSON body of a chat request.
type Request struct {
	Messages []Message `json:"messages"`
}

// Response is the JSON body the backend answers with.
type Response struct {
	Result string `json:"result"`
}

// StatusError is returned when the backend answers with a non-2xx status.
// The response body is never inspected.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d", e.Code)
}

// Chatter sends a conversation and returns the backend's reply text.
// An empty reply with a nil error means the backend answered without a usable result.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Client posts chat requests to a backend target.
type Client struct {
	target     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for the backend at target (scheme + host + port).
// Requests carry no timeout: a turn runs until the backend answers or the
// transport fails.
func New(target string, opts ...Option) *Client {
	c := &Client{
		target:     strings.TrimRight(target, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target returns the backend base URL.
func (c *Client) Target() string {
	return c.target
}

// Chat posts messages to {target}/api/chat.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(Request{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+ChatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	// The whole body must be one JSON value; trailing data is malformed.
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return "", nil
	}

	return resultText(obj["result"])
}

// resultText converts a decoded "result" value to display text. Values that
// are falsy (absent, null, false, 0, "") yield the empty string. Other
// non-string values are shown as their JSON text, not JavaScript's
// String() form (1e21 prints in full, objects print as JSON).
func resultText(v any) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	case bool:
		if !r {
			return "", nil
		}
		return "true", nil
	case float64:
		if r == 0 {
			return "", nil
		}
		return strconv.FormatFloat(r, 'f', -1, 64), nil
	default:
		raw, err := json.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("encoding result: %w", err)
		}
		return string(raw), nil
	}
}
