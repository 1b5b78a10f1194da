// Package anthropic adapts Anthropic Claude models to the model.ChatModel
// interface.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/tutorgraph-go/tutor/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-sonnet-4-5"

// defaultMaxTokens bounds generation; Anthropic requires an explicit limit.
const defaultMaxTokens = 4096

// ChatModel implements model.ChatModel over the official Anthropic Go SDK.
type ChatModel struct {
	client *anthropic.Client
	model  string
}

// New creates an Anthropic ChatModel. An empty modelName selects
// DefaultModel.
func New(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{client: &client, model: modelName}
}

// Chat implements model.ChatModel.
func (c *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.Response, error) {
	message, err := c.client.Messages.New(ctx, c.params(messages))
	if err != nil {
		return model.Response{}, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return model.Response{
		Text:       text.String(),
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}

// ChatStream implements model.ChatModel using the Messages streaming API.
func (c *ChatModel) ChatStream(ctx context.Context, messages []model.Message, onDelta func(string)) (model.Response, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(messages))

	acc := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return model.Response{}, err
		}

		if onDelta == nil {
			continue
		}
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				onDelta(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return model.Response{}, err
	}

	var text strings.Builder
	for _, block := range acc.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return model.Response{
		Text:       text.String(),
		TokensUsed: int(acc.Usage.InputTokens + acc.Usage.OutputTokens),
	}, nil
}

// params converts the shared message format. System messages become the
// request-level system prompt; Anthropic does not accept them inline.
func (c *ChatModel) params(messages []model.Message) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	conversation := make([]anthropic.MessageParam, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case model.RoleAssistant:
			conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System:    system,
		Messages:  conversation,
	}
}
