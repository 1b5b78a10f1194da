package model

import (
	"context"
	"strings"
	"sync"
)

// MockChatModel is a test implementation of ChatModel.
//
// It returns configured responses in order (repeating the last one when
// exhausted), records every call, and can inject errors. ChatStream splits
// the response into word fragments so token handling can be exercised.
//
//	mock := &model.MockChatModel{
//	    Responses: []model.Response{{Text: "First"}, {Text: "Second"}},
//	}
type MockChatModel struct {
	// Responses is the sequence of responses to return in order. When
	// exhausted, the last response repeats.
	Responses []Response

	// Err, when set, is returned instead of a response.
	Err error

	// Calls records every invocation's messages.
	Calls [][]Message

	mu        sync.Mutex
	callIndex int
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message) (Response, error) {
	return m.next(ctx, messages)
}

// ChatStream implements ChatModel, delivering the response word by word.
func (m *MockChatModel) ChatStream(ctx context.Context, messages []Message, onDelta func(string)) (Response, error) {
	out, err := m.next(ctx, messages)
	if err != nil {
		return Response{}, err
	}
	if onDelta != nil {
		for _, word := range strings.SplitAfter(out.Text, " ") {
			if word != "" {
				onDelta(word)
			}
		}
	}
	return out, nil
}

func (m *MockChatModel) next(ctx context.Context, messages []Message) (Response, error) {
	if ctx.Err() != nil {
		return Response{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, messages)
	if m.Err != nil {
		return Response{}, m.Err
	}
	if len(m.Responses) == 0 {
		return Response{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	return m.Responses[idx], nil
}

// CallCount returns how many times the model was invoked.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
