// Package querytest provides shared test doubles for the query.Engine interface.
package querytest

import (
	"context"
	"fmt"

	"github.com/chatbridge/chatbridge/internal/fault"
	"github.com/chatbridge/chatbridge/internal/query"
)

// MockEngine implements query.Engine for testing. Each method delegates to an
// optional function field; when the field is nil, the fixture fields answer.
type MockEngine struct {
	ListResults   []query.Message
	Messages      map[int64]*query.Message
	Conversations []query.Conversation
	ContextWindow []query.Message

	// Optional overrides, set per-test to customise behavior.
	ListMessagesFunc      func(context.Context, query.Filter) ([]query.Message, error)
	GetMessageFunc        func(context.Context, int64) (*query.Message, error)
	ListConversationsFunc func(context.Context, int) ([]query.Conversation, error)
	GetContextFunc        func(context.Context, int64, int, int) ([]query.Message, error)
}

// Compile-time check.
var _ query.Engine = (*MockEngine)(nil)

func (m *MockEngine) ListMessages(ctx context.Context, filter query.Filter) ([]query.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, filter)
	}
	return m.ListResults, nil
}

func (m *MockEngine) GetMessage(ctx context.Context, id int64) (*query.Message, error) {
	if m.GetMessageFunc != nil {
		return m.GetMessageFunc(ctx, id)
	}
	if msg, ok := m.Messages[id]; ok {
		return msg, nil
	}
	return nil, fmt.Errorf("message %d: %w", id, fault.ErrNotFound)
}

func (m *MockEngine) ListConversations(ctx context.Context, limit int) ([]query.Conversation, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, limit)
	}
	return m.Conversations, nil
}

func (m *MockEngine) GetContext(ctx context.Context, id int64, before, after int) ([]query.Message, error) {
	if m.GetContextFunc != nil {
		return m.GetContextFunc(ctx, id, before, after)
	}
	if _, ok := m.Messages[id]; !ok && m.ContextWindow == nil {
		return nil, fmt.Errorf("message %d: %w", id, fault.ErrNotFound)
	}
	return m.ContextWindow, nil
}
