// Package storetest provides an in-memory database shaped like the Messages
// store for query-layer tests.
package storetest

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatbridge/chatbridge/internal/appletime"
)

const schema = `
CREATE TABLE handle (
	ROWID INTEGER PRIMARY KEY,
	id TEXT NOT NULL
);
CREATE TABLE chat (
	ROWID INTEGER PRIMARY KEY,
	guid TEXT NOT NULL,
	chat_identifier TEXT NOT NULL,
	display_name TEXT,
	style INTEGER NOT NULL DEFAULT 45
);
CREATE TABLE chat_handle_join (
	chat_id INTEGER NOT NULL,
	handle_id INTEGER NOT NULL
);
CREATE TABLE message (
	ROWID INTEGER PRIMARY KEY,
	guid TEXT NOT NULL,
	text TEXT,
	date INTEGER NOT NULL DEFAULT 0,
	is_from_me INTEGER NOT NULL DEFAULT 0,
	is_read INTEGER NOT NULL DEFAULT 0,
	is_delivered INTEGER NOT NULL DEFAULT 1,
	cache_has_attachments INTEGER NOT NULL DEFAULT 0,
	handle_id INTEGER NOT NULL DEFAULT 0,
	associated_message_guid TEXT,
	associated_message_type INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE chat_message_join (
	chat_id INTEGER NOT NULL,
	message_id INTEGER NOT NULL
);
`

// Open creates an in-memory Messages-shaped database. The connection is
// closed automatically when the test finishes.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	return db
}

// Handle inserts a handle row and returns its rowid.
func Handle(t *testing.T, db *sql.DB, identifier string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO handle (id) VALUES (?)`, identifier)
	if err != nil {
		t.Fatalf("insert handle: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Chat inserts a chat row and returns its rowid. style 45 is a one-to-one
// conversation, 43 a group.
func Chat(t *testing.T, db *sql.DB, identifier, displayName string, style int) int64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO chat (guid, chat_identifier, display_name, style) VALUES (?, ?, ?, ?)`,
		"fixture;-;"+identifier, identifier, displayName, style)
	if err != nil {
		t.Fatalf("insert chat: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// JoinHandle links a handle into a chat's participant list.
func JoinHandle(t *testing.T, db *sql.DB, chatID, handleID int64) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO chat_handle_join (chat_id, handle_id) VALUES (?, ?)`, chatID, handleID); err != nil {
		t.Fatalf("join handle: %v", err)
	}
}

// Message describes a fixture message row.
type Message struct {
	GUID           string
	Text           string
	SentAt         time.Time
	FromMe         bool
	Read           bool
	HasAttachments bool
	HandleID       int64
	TapbackTarget  string // associated_message_guid; sets a tapback type when non-empty
}

// Insert adds a message to a chat and returns its rowid.
func Insert(t *testing.T, db *sql.DB, chatID int64, m Message) int64 {
	t.Helper()
	assocType := 0
	var assocGUID any
	if m.TapbackTarget != "" {
		assocType = 2000 // "loved" reaction
		assocGUID = m.TapbackTarget
	}
	res, err := db.Exec(`
		INSERT INTO message (guid, text, date, is_from_me, is_read, cache_has_attachments, handle_id, associated_message_guid, associated_message_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.GUID, m.Text, appletime.Encode(m.SentAt),
		boolInt(m.FromMe), boolInt(m.Read), boolInt(m.HasAttachments),
		m.HandleID, assocGUID, assocType)
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}
	id, _ := res.LastInsertId()
	if _, err := db.Exec(`INSERT INTO chat_message_join (chat_id, message_id) VALUES (?, ?)`, chatID, id); err != nil {
		t.Fatalf("join message: %v", err)
	}
	return id
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
