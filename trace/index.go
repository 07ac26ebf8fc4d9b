package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Index is the sqlite catalogue of recorded episodes.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("trace: empty index path")
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
	return &Index{db: db}, nil
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
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			race TEXT NOT NULL DEFAULT '',
			profile TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT '',
			steps INTEGER NOT NULL DEFAULT 0,
			actions INTEGER NOT NULL DEFAULT 0,
			trace_path TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS episodes_started ON episodes(started_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (x *Index) Close() error { return x.db.Close() }

// Begin inserts a new episode row.
func (x *Index) Begin(ctx context.Context, ep Episode) error {
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO episodes(id, player, race, profile, started_at, trace_path) VALUES(?, ?, ?, ?, ?, ?)`,
		ep.ID, ep.Player, ep.Race, ep.Profile, formatTime(ep.StartedAt), ep.TracePath)
	if err != nil {
		return fmt.Errorf("trace: begin episode %s: %w", ep.ID, err)
	}
	return nil
}

// End closes an episode row with its outcome and counters.
func (x *Index) End(ctx context.Context, id, outcome string, steps, actions int, at time.Time) error {
	res, err := x.db.ExecContext(ctx,
		`UPDATE episodes SET ended_at = ?, outcome = ?, steps = ?, actions = ? WHERE id = ?`,
		formatTime(at), outcome, steps, actions, id)
	if err != nil {
		return fmt.Errorf("trace: end episode %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trace: end episode %s: not found", id)
	}
	return nil
}

// Get returns one episode by id.
func (x *Index) Get(ctx context.Context, id string) (Episode, bool, error) {
	row := x.db.QueryRowContext(ctx, selectEpisodes+` WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, false, nil
	}
	if err != nil {
		return Episode{}, false, err
	}
	return ep, true, nil
}

// Recent lists up to limit episodes, newest first.
func (x *Index) Recent(ctx context.Context, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := x.db.QueryContext(ctx, selectEpisodes+` ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return out, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

const selectEpisodes = `SELECT id, player, race, profile, started_at, ended_at, outcome, steps, actions, trace_path FROM episodes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(r rowScanner) (Episode, error) {
	var ep Episode
	var started, ended string
	err := r.Scan(&ep.ID, &ep.Player, &ep.Race, &ep.Profile, &started, &ended,
		&ep.Outcome, &ep.Steps, &ep.Actions, &ep.TracePath)
	if err != nil {
		return ep, err
	}
	ep.StartedAt = parseTime(started)
	ep.EndedAt = parseTime(ended)
	return ep, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
