// Package query composes filtered retrieval requests against the Messages
// store and decodes the store's loosely-typed rows into typed entities.
// Filters compose conjunctively: every present field adds one predicate,
// absent fields add none.
package query

import "time"

// Message is one stored conversational event.
type Message struct {
	ID             int64     `json:"id"`
	GUID           string    `json:"guid"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
	FromMe         bool      `json:"from_me"`
	Read           bool      `json:"read"`
	Delivered      bool      `json:"delivered"`
	HasAttachments bool      `json:"has_attachments"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       string    `json:"sender_id,omitempty"`   // handle (phone/email); empty for own messages
	SenderName     string    `json:"sender_name,omitempty"` // filled by contact enrichment
}

// Conversation is a chat thread, single-party or group.
type Conversation struct {
	ID            int64     `json:"id"`
	Identifier    string    `json:"identifier"` // phone/email, or opaque group key
	DisplayName   string    `json:"display_name,omitempty"`
	IsGroup       bool      `json:"is_group"`
	Participants  []string  `json:"participants"`
	MessageCount  int64     `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// Filter specifies which messages to retrieve. All fields are optional.
type Filter struct {
	Limit          int        // capped result count; 0 selects DefaultLimit
	After          *time.Time // only messages at or after this instant
	Before         *time.Time // only messages strictly before this instant
	Text           string     // substring match on message text
	ContactID      string     // sender/recipient handle (phone or email)
	ConversationID *int64     // restrict to one conversation
}

// Result limits. The store applies the cap, never the builder.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// EffectiveLimit returns the row cap after defaulting and clamping.
func (f Filter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}
