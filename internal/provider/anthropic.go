package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicAdapter is the secondary backend, speaking the messages API over
// SSE. Unlike the primary, this backend takes the system instruction as a
// top-level parameter, so a leading system message is removed from the list
// and passed separately.
type AnthropicAdapter struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
}

// AnthropicConfig carries the secondary backend settings.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// NewAnthropic builds the secondary adapter. The HTTP client carries no
// overall timeout; stream lifetime is bounded by the caller's context.
func NewAnthropic(cfg AnthropicConfig) *AnthropicAdapter {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &AnthropicAdapter{
		httpClient: &http.Client{},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    baseURL,
		maxTokens:  maxTokens,
	}
}

// Name returns the adapter's wire name.
func (a *AnthropicAdapter) Name() string { return Secondary }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Stream    bool               `json:"stream"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream opens an SSE completion stream. Any transport or API error ends the
// returned reader abnormally; there is no retry.
func (a *AnthropicAdapter) Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[string], error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("anthropic api key missing")
	}

	system := ""
	rest := messages
	if len(rest) > 0 && rest[0].Role == schema.System {
		system = rest[0].Content
		rest = rest[1:]
	}

	wireMessages := make([]anthropicMessage, 0, len(rest))
	for _, msg := range rest {
		wireMessages = append(wireMessages, anthropicMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	payload, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Stream:    true,
		Messages:  wireMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("anthropic build request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic error: status=%d body=%s", resp.StatusCode, string(body))
	}

	reader, writer := schema.Pipe[string](8)
	go a.pump(resp.Body, writer)
	return reader, nil
}

// pump parses SSE lines into text deltas until the stream stops.
func (a *AnthropicAdapter) pump(body io.ReadCloser, writer *schema.StreamWriter[string]) {
	defer body.Close()
	defer writer.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event anthropicEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Text == "" {
				continue
			}
			if closed := writer.Send(event.Delta.Text, nil); closed {
				return
			}
		case "message_stop":
			return
		case "error":
			writer.Send("", fmt.Errorf("anthropic stream error: %s: %s", event.Error.Type, event.Error.Message))
			return
		}
	}

	if err := scanner.Err(); err != nil {
		writer.Send("", fmt.Errorf("anthropic stream read: %w", err))
	}
}
