package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkAdapter is the primary backend: an eino chat model streaming message
// frames, flattened here into plain text deltas.
type ArkAdapter struct {
	name      string
	chatModel model.ChatModel
}

// NewArk wraps an eino chat model as a provider adapter.
func NewArk(name string, chatModel model.ChatModel) *ArkAdapter {
	return &ArkAdapter{name: name, chatModel: chatModel}
}

// Name returns the adapter's wire name.
func (a *ArkAdapter) Name() string { return a.name }

// Stream opens a model stream and converts each frame to its text content,
// skipping frames that carry no content (tool calls, usage-only frames).
func (a *ArkAdapter) Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[string], error) {
	stream, err := a.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("ark stream: %w", err)
	}

	return schema.StreamReaderWithConvert(stream, func(msg *schema.Message) (string, error) {
		if msg == nil || msg.Content == "" {
			return "", schema.ErrNoValue
		}
		return msg.Content, nil
	}), nil
}
