package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chatbridge/chatbridge/internal/appletime"
	"github.com/chatbridge/chatbridge/internal/contacts"
	"github.com/chatbridge/chatbridge/internal/fault"
	"github.com/chatbridge/chatbridge/internal/store"
)

// SQLiteEngine implements Engine with direct queries against the Messages
// database. All untrusted strings travel as bound parameters; LIKE patterns
// additionally escape their wildcard characters.
type SQLiteEngine struct {
	db     store.Querier
	logger *slog.Logger
}

// NewSQLiteEngine creates an engine over a read-only Messages connection.
func NewSQLiteEngine(db store.Querier) *SQLiteEngine {
	return &SQLiteEngine{db: db, logger: slog.Default()}
}

// WithLogger sets the logger used for skipped-row diagnostics.
func (e *SQLiteEngine) WithLogger(logger *slog.Logger) *SQLiteEngine {
	e.logger = logger
	return e
}

// messageSelect is the shared projection for message queries. Reaction rows
// (tapbacks) reference another message and are excluded everywhere.
const messageSelect = `
	SELECT
		m.ROWID,
		m.guid,
		m.text,
		m.date,
		m.is_from_me,
		m.is_read,
		m.is_delivered,
		m.cache_has_attachments,
		h.id,
		cmj.chat_id
	FROM message m
	JOIN chat_message_join cmj ON cmj.message_id = m.ROWID
	LEFT JOIN handle h ON h.ROWID = m.handle_id
`

const excludeTapbacks = "m.associated_message_type NOT BETWEEN 2000 AND 3007"

// escapeLike escapes the characters that are meaningful inside a LIKE
// pattern so untrusted input matches literally. Paired with ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// filterConditions converts a Filter into WHERE conditions and bound args.
// Each present field contributes exactly one predicate.
func filterConditions(filter Filter) ([]string, []any) {
	conditions := []string{excludeTapbacks}
	var args []any

	if filter.After != nil {
		conditions = append(conditions, "m.date >= ?")
		args = append(args, appletime.Encode(*filter.After))
	}
	if filter.Before != nil {
		conditions = append(conditions, "m.date < ?")
		args = append(args, appletime.Encode(*filter.Before))
	}
	if filter.Text != "" {
		conditions = append(conditions, `m.text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Text)+"%")
	}
	if filter.ContactID != "" {
		// Phone-shaped identifiers are stored in normalized form;
		// email handles are stored verbatim.
		conditions = append(conditions, "h.id = ?")
		args = append(args, contacts.Normalize(filter.ContactID))
	}
	if filter.ConversationID != nil {
		conditions = append(conditions, "cmj.chat_id = ?")
		args = append(args, *filter.ConversationID)
	}

	return conditions, args
}

// ListMessages returns messages matching the filter, newest first.
func (e *SQLiteEngine) ListMessages(ctx context.Context, filter Filter) ([]Message, error) {
	conditions, args := filterConditions(filter)
	args = append(args, filter.EffectiveLimit())

	q := fmt.Sprintf(`%s WHERE %s ORDER BY m.date DESC LIMIT ?`,
		messageSelect, strings.Join(conditions, " AND "))

	return e.queryMessages(ctx, q, args...)
}

// GetMessage returns one message by store id.
func (e *SQLiteEngine) GetMessage(ctx context.Context, id int64) (*Message, error) {
	msgs, err := e.queryMessages(ctx, messageSelect+` WHERE m.ROWID = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message %d: %w", id, fault.ErrNotFound)
	}
	return &msgs[0], nil
}

// GetContext resolves the target's conversation and timestamp, then issues
// one strictly-before and one strictly-after query against that
// conversation. The result reads oldest to newest around the target.
func (e *SQLiteEngine) GetContext(ctx context.Context, id int64, before, after int) ([]Message, error) {
	target, err := e.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	pivot := appletime.Encode(target.SentAt)

	older, err := e.queryMessages(ctx, fmt.Sprintf(
		`%s WHERE cmj.chat_id = ? AND m.date < ? AND m.ROWID != ? AND %s ORDER BY m.date DESC LIMIT ?`,
		messageSelect, excludeTapbacks),
		target.ConversationID, pivot, id, clampContext(before))
	if err != nil {
		return nil, err
	}
	// The before-query runs newest-first so LIMIT keeps the closest
	// messages; reverse into chronological order.
	for i, j := 0, len(older)-1; i < j; i, j = i+1, j-1 {
		older[i], older[j] = older[j], older[i]
	}

	newer, err := e.queryMessages(ctx, fmt.Sprintf(
		`%s WHERE cmj.chat_id = ? AND m.date > ? AND m.ROWID != ? AND %s ORDER BY m.date ASC LIMIT ?`,
		messageSelect, excludeTapbacks),
		target.ConversationID, pivot, id, clampContext(after))
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(older)+1+len(newer))
	out = append(out, older...)
	out = append(out, *target)
	out = append(out, newer...)
	return out, nil
}

func clampContext(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// ListConversations returns conversations ordered by most recent activity.
func (e *SQLiteEngine) ListConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT
			c.ROWID,
			c.chat_identifier,
			c.display_name,
			c.style,
			(SELECT COUNT(*) FROM chat_message_join j WHERE j.chat_id = c.ROWID) AS message_count,
			(SELECT MAX(m.date) FROM message m
				JOIN chat_message_join j ON j.message_id = m.ROWID
				WHERE j.chat_id = c.ROWID) AS last_date
		FROM chat c
		ORDER BY last_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var (
			c           Conversation
			displayName sql.NullString
			style       sql.NullInt64
			lastDate    sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Identifier, &displayName, &style, &c.MessageCount, &lastDate); err != nil {
			e.logger.Debug("skipping malformed conversation row", "error", err)
			continue
		}
		c.DisplayName = displayName.String
		// chat style 43 marks a group thread in the Messages schema.
		c.IsGroup = style.Valid && style.Int64 == 43
		c.LastMessageAt = appletime.DecodeNullable(lastDate)
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	if err := e.fetchParticipants(ctx, convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// fetchParticipants attaches participant handle lists with one batch query.
func (e *SQLiteEngine) fetchParticipants(ctx context.Context, convs []Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	placeholders := make([]string, len(convs))
	args := make([]any, len(convs))
	index := make(map[int64]int, len(convs))
	for i, c := range convs {
		placeholders[i] = "?"
		args[i] = c.ID
		index[c.ID] = i
	}

	rows, err := e.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT chj.chat_id, h.id
		FROM chat_handle_join chj
		JOIN handle h ON h.ROWID = chj.handle_id
		WHERE chj.chat_id IN (%s)
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return fmt.Errorf("fetch participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chatID int64
		var handle string
		if err := rows.Scan(&chatID, &handle); err != nil {
			continue
		}
		if i, ok := index[chatID]; ok {
			convs[i].Participants = append(convs[i].Participants, handle)
		}
	}
	return rows.Err()
}

// queryMessages runs a message query and decodes rows. A malformed row is
// skipped rather than failing the whole result; an empty result is never an
// error.
func (e *SQLiteEngine) queryMessages(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		msg, err := decodeMessage(rows)
		if err != nil {
			e.logger.Debug("skipping malformed message row", "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// decodeMessage converts one loosely-typed store row into a Message.
// This is the only place message rows are interpreted.
func decodeMessage(rows *sql.Rows) (Message, error) {
	var (
		m         Message
		text      sql.NullString
		date      sql.NullInt64
		fromMe    sql.NullInt64
		read      sql.NullInt64
		delivered sql.NullInt64
		hasAtt    sql.NullInt64
		sender    sql.NullString
	)
	if err := rows.Scan(&m.ID, &m.GUID, &text, &date, &fromMe, &read, &delivered, &hasAtt, &sender, &m.ConversationID); err != nil {
		return Message{}, err
	}
	m.Text = text.String
	m.SentAt = appletime.DecodeNullable(date)
	m.FromMe = fromMe.Int64 != 0
	m.Read = read.Int64 != 0
	m.Delivered = delivered.Int64 != 0
	m.HasAttachments = hasAtt.Int64 != 0
	if !m.FromMe {
		m.SenderID = sender.String
	}
	return m, nil
}
