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
	"sync"

	"github.com/papercomputeco/chatwidget/pkg/chatclient"
	"github.com/papercomputeco/chatwidget/pkg/config"
)

// ErrNoUserMessage is returned when a conversation holds no user message.
var ErrNoUserMessage = errors.New("no user message in conversation")

// Responder produces the reply for a conversation.
type Responder interface {
	Name() string
	Respond(ctx context.Context, messages []chatclient.Message) (string, error)
}

// NewResponder builds the responder named by a serve.responder config value.
func NewResponder(cfg config.ServeConfig) (Responder, error) {
	switch cfg.Responder {
	case config.ResponderEcho, "":
		return EchoResponder{}, nil
	case config.ResponderOllama:
		return NewOllamaResponder(cfg.Upstream, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown responder: %q", cfg.Responder)
	}
}

// EchoResponder replies with the last user message.
type EchoResponder struct{}

func (EchoResponder) Name() string { return config.ResponderEcho }

func (EchoResponder) Respond(_ context.Context, messages []chatclient.Message) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chatclient.RoleUser {
			return messages[i].Content, nil
		}
	}
	return "", ErrNoUserMessage
}

// ollamaRequest is the Ollama-native chat request format.
type ollamaRequest struct {
	Model    string               `json:"model"`
	Messages []chatclient.Message `json:"messages"`
	Stream   bool                 `json:"stream"`
}

// ollamaResponse is a non-streaming Ollama chat response.
type ollamaResponse struct {
	Model   string             `json:"model"`
	Message chatclient.Message `json:"message"`
	Done    bool               `json:"done"`
}

// OllamaResponder forwards the conversation to an Ollama server.
type OllamaResponder struct {
	upstream   string
	httpClient *http.Client

	mu    sync.RWMutex
	model string
}

func NewOllamaResponder(upstream, model string) *OllamaResponder {
	return &OllamaResponder{
		upstream:   strings.TrimRight(upstream, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (o *OllamaResponder) Name() string { return config.ResponderOllama }

func (o *OllamaResponder) Upstream() string { return o.upstream }

// Model returns the model requests are sent to.
func (o *OllamaResponder) Model() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.model
}

// SetModel switches the model used by later requests.
func (o *OllamaResponder) SetModel(model string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = model
}

func (o *OllamaResponder) Respond(ctx context.Context, messages []chatclient.Message) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:    o.Model(),
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.upstream+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request to upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding upstream response: %w", err)
	}

	return parsed.Message.Content, nil
}
