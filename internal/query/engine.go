package query

import "context"

// Engine provides retrieval operations over the Messages store.
// SQLiteEngine is the production implementation; tests substitute mocks.
type Engine interface {
	// ListMessages returns messages matching the filter, newest first.
	ListMessages(ctx context.Context, filter Filter) ([]Message, error)

	// GetMessage returns one message by store id.
	// Returns fault.ErrNotFound if the id does not resolve.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListConversations returns conversations ordered by most recent
	// activity, with participant identifier lists.
	ListConversations(ctx context.Context, limit int) ([]Conversation, error)

	// GetContext returns up to `before` messages older than the target,
	// the target itself, and up to `after` newer ones, all oldest-first
	// within the target's conversation.
	// Returns fault.ErrNotFound if the target id does not resolve.
	GetContext(ctx context.Context, id int64, before, after int) ([]Message, error)
}
