// Package eventindex keeps a queryable SQLite copy of decoded game events.
package eventindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"gamechain/internal/gametx"
)

type SQLiteIndex struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_events (
			height INTEGER NOT NULL,
			txid TEXT NOT NULL,
			input INTEGER NOT NULL,
			player TEXT NOT NULL,
			op INTEGER NOT NULL,
			text TEXT NOT NULL,
			event_json TEXT NOT NULL,
			PRIMARY KEY (txid, input)
		);`,
		`CREATE INDEX IF NOT EXISTS game_events_player ON game_events(player, height);`,
		`CREATE INDEX IF NOT EXISTS game_events_height ON game_events(height);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteEvents stores the records of one block atomically. Re-indexing the
// same input replaces the previous row.
func (s *SQLiteIndex) WriteEvents(recs []gametx.EventRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO game_events
		(height, txid, input, player, op, text, event_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		b, err := json.Marshal(r.Event)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(r.Height, r.TxID, r.Input, r.Event.Name, int(r.Event.Op), r.Text, string(b)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ByPlayer returns the events whose subject is player, oldest first.
func (s *SQLiteIndex) ByPlayer(ctx context.Context, player string, limit int) ([]gametx.EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.query(ctx, `SELECT height, txid, input, text, event_json FROM game_events
		WHERE player = ? ORDER BY height ASC, txid ASC, input ASC LIMIT ?`, player, limit)
}

// ByHeight returns the events recorded at one block height.
func (s *SQLiteIndex) ByHeight(ctx context.Context, height int64) ([]gametx.EventRecord, error) {
	return s.query(ctx, `SELECT height, txid, input, text, event_json FROM game_events
		WHERE height = ? ORDER BY txid ASC, input ASC`, height)
}

func (s *SQLiteIndex) query(ctx context.Context, q string, args ...any) ([]gametx.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gametx.EventRecord
	for rows.Next() {
		var (
			r  gametx.EventRecord
			ev string
		)
		if err := rows.Scan(&r.Height, &r.TxID, &r.Input, &r.Text, &ev); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ev), &r.Event); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
