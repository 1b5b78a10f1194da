// Package google adapts Google Gemini models to the model.ChatModel
// interface.
package google

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dshills/tutorgraph-go/tutor/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-2.0-flash"

// ChatModel implements model.ChatModel over the Google generative AI SDK.
// Close releases the underlying connection when the model is no longer
// needed.
type ChatModel struct {
	client *genai.Client
	model  string
}

// New creates a Gemini ChatModel. An empty modelName selects DefaultModel.
func New(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &ChatModel{client: client, model: modelName}, nil
}

// Close releases the underlying client.
func (c *ChatModel) Close() error {
	return c.client.Close()
}

// Chat implements model.ChatModel.
func (c *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.Response, error) {
	gm, parts := c.prepare(messages)

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return model.Response{}, err
	}
	return extract(resp)
}

// ChatStream implements model.ChatModel using streamed generation.
func (c *ChatModel) ChatStream(ctx context.Context, messages []model.Message, onDelta func(string)) (model.Response, error) {
	gm, parts := c.prepare(messages)

	var text strings.Builder
	var tokens int

	iter := gm.GenerateContentStream(ctx, parts...)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return model.Response{}, err
		}

		chunk, err := extract(resp)
		if err != nil {
			return model.Response{}, err
		}
		text.WriteString(chunk.Text)
		if chunk.TokensUsed > 0 {
			tokens = chunk.TokensUsed
		}
		if onDelta != nil && chunk.Text != "" {
			onDelta(chunk.Text)
		}
	}
	return model.Response{Text: text.String(), TokensUsed: tokens}, nil
}

// prepare converts the conversation: system messages become the system
// instruction, the rest are flattened into ordered text parts.
func (c *ChatModel) prepare(messages []model.Message) (*genai.GenerativeModel, []genai.Part) {
	gm := c.client.GenerativeModel(c.model)

	var parts []genai.Part
	for _, m := range messages {
		if m.Role == model.RoleSystem {
			gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(m.Content)}}
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return gm, parts
}

func extract(resp *genai.GenerateContentResponse) (model.Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.Response{}, errors.New("google: empty response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	var tokens int
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return model.Response{Text: text.String(), TokensUsed: tokens}, nil
}
