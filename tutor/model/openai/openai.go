// Package openai adapts OpenAI chat models to the model.ChatModel interface.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/tutorgraph-go/tutor/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gpt-4o-mini"

// ChatModel implements model.ChatModel over the official OpenAI Go SDK.
//
//	m := openai.New(os.Getenv("OPENAI_API_KEY"), "gpt-4o")
//	out, err := m.Chat(ctx, model.User("Explain gradient descent."))
type ChatModel struct {
	client *openai.Client
	model  string
}

// New creates an OpenAI ChatModel. An empty modelName selects DefaultModel.
func New(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{client: &client, model: modelName}
}

// Chat implements model.ChatModel.
func (c *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.Response, error) {
	completion, err := c.client.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return model.Response{}, err
	}
	if len(completion.Choices) == 0 {
		return model.Response{}, errors.New("openai: empty completion")
	}
	return model.Response{
		Text:       completion.Choices[0].Message.Content,
		TokensUsed: int(completion.Usage.TotalTokens),
	}, nil
}

// ChatStream implements model.ChatModel using server-sent completion chunks.
func (c *ChatModel) ChatStream(ctx context.Context, messages []model.Message, onDelta func(string)) (model.Response, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages))
	defer func() { _ = stream.Close() }()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if onDelta != nil && len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				onDelta(delta)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return model.Response{}, err
	}
	if len(acc.Choices) == 0 {
		return model.Response{}, errors.New("openai: empty stream")
	}
	return model.Response{
		Text:       acc.Choices[0].Message.Content,
		TokensUsed: int(acc.Usage.TotalTokens),
	}, nil
}

func (c *ChatModel) params(messages []model.Message) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: converted,
	}
}
