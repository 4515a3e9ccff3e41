package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/adprobe/dbopen"
	"github.com/hazyhaar/adprobe/probe/message"
)

// Schema is the table layout of the sqlite sink. One row per message;
// value holds the JSON-encoded payload.
const Schema = `
CREATE TABLE IF NOT EXISTS extension_messages (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	visit_id   TEXT NOT NULL DEFAULT '',
	page_url   TEXT NOT NULL DEFAULT '',
	command    TEXT NOT NULL DEFAULT '',
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extension_messages_visit ON extension_messages(visit_id, kind);
`

const insertMessage = `INSERT INTO extension_messages
	(id, kind, visit_id, page_url, command, value, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// SQLite stores every message as a row of extension_messages.
type SQLite struct {
	db    *sql.DB
	owned bool
}

// NewSQLite wraps an open database and ensures the schema exists. The
// caller keeps ownership of db; Close does not close it.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// OpenSQLite opens (creating if needed) the database file at path. The
// driver must be registered by the caller (modernc.org/sqlite).
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return &SQLite{db: db, owned: true}, nil
}

func (s *SQLite) Send(ctx context.Context, msg message.Message) error {
	value, err := json.Marshal(msg.Value)
	if err != nil {
		return fmt.Errorf("sqlite: marshal %s value: %w", msg.Kind, err)
	}
	err = dbopen.ExecRetry(ctx, s.db, insertMessage,
		msg.ID, string(msg.Kind), msg.VisitID, msg.PageURL, msg.Command, string(value), msg.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite: insert %s: %w", msg.ID, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
