package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink implements FeedbackSink using SQLite.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate feedback db: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id    TEXT NOT NULL,
			category    TEXT NOT NULL,
			message     TEXT NOT NULL DEFAULT '',
			choices     TEXT NOT NULL DEFAULT '[]',
			received_at TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) Record(ctx context.Context, rec FeedbackRecord) error {
	choices := rec.Choices
	if choices == nil {
		choices = []string{}
	}
	choicesJSON, err := json.Marshal(choices)
	if err != nil {
		return fmt.Errorf("marshal feedback choices: %w", err)
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO feedback (entry_id, category, message, choices, received_at) VALUES (?, ?, ?, ?, ?)",
		rec.EntryID, rec.Category, rec.Message, string(choicesJSON),
		rec.ReceivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *SQLiteSink) List(ctx context.Context) ([]FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT entry_id, category, message, choices, received_at FROM feedback ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FeedbackRecord
	for rows.Next() {
		var rec FeedbackRecord
		var choicesStr, receivedStr string
		if err := rows.Scan(&rec.EntryID, &rec.Category, &rec.Message, &choicesStr, &receivedStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(choicesStr), &rec.Choices); err != nil {
			return nil, fmt.Errorf("unmarshal feedback choices: %w", err)
		}
		rec.ReceivedAt, _ = time.Parse(time.RFC3339Nano, receivedStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}
