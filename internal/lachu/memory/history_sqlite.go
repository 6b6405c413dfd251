package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SQLiteHistory stores transcripts in the chat_history table, one row per
// message. The caller must have applied the store migrations.
type SQLiteHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteHistory returns a History backed by db. A nil logger selects
// slog.Default().
func NewSQLiteHistory(db *sql.DB, logger *slog.Logger) *SQLiteHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteHistory{db: db, logger: logger}
}

// Recent returns up to limit of the newest messages for key, oldest first.
// A limit of zero or less returns nothing.
func (s *SQLiteHistory) Recent(ctx context.Context, key Key, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM (
			SELECT seq, role, content, created_at
			FROM chat_history
			WHERE server_id = ? AND user_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC`,
		key.ServerID, key.UserID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history sqlite: query recent: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			role      string
			content   string
			createdAt string
		)
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("history sqlite: scan row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			s.logger.Warn("history sqlite: skip row with bad timestamp", "created_at", createdAt, "err", err)
			continue
		}
		msgs = append(msgs, Message{Role: Role(role), Content: content, Timestamp: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history sqlite: iterate rows: %w", err)
	}
	return msgs, nil
}

// Append inserts msgs in a single transaction. A zero Timestamp is replaced
// with the current time.
func (s *SQLiteHistory) Append(ctx context.Context, key Key, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("history sqlite: message %d: invalid role %q", i, m.Role)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_history (id, server_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("history sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			uuid.NewString(),
			key.ServerID,
			key.UserID,
			string(m.Role),
			m.Content,
			ts.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("history sqlite: insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history sqlite: commit: %w", err)
	}

	s.logger.Debug("history sqlite: appended messages",
		"server_id", key.ServerID,
		"user_id", key.UserID,
		"messages", len(msgs),
	)
	return nil
}

var _ History = (*SQLiteHistory)(nil)
