// Package stats persists per-run pilot statistics to SQLite.
package stats

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
}

// PilotRow is one ship's totals for a server run.
type PilotRow struct {
	Run    int64
	Ship   uint32
	Shots  int
	Kills  int
	Deaths int
}

// Open opens (or creates) the stats database at path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open stats db %s: %w", path, err)
	}
	// A single writer goroutine owns the connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pilots (
		run INTEGER NOT NULL REFERENCES runs(id),
		ship INTEGER NOT NULL,
		shots INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		joined_at DATETIME,
		left_at DATETIME,
		PRIMARY KEY (run, ship)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run INTEGER NOT NULL REFERENCES runs(id),
		kind TEXT NOT NULL,
		ship INTEGER NOT NULL,
		other INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		log.Error().Err(err).Msg("stats migration failed")
		return fmt.Errorf("migrate stats db: %w", err)
	}
	return nil
}

// StartRun registers a new server run and returns its id.
func (s *Store) StartRun() (int64, error) {
	res, err := s.conn.Exec("INSERT INTO runs DEFAULT VALUES")
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

// Leaderboard returns the pilots of a run ordered by kills, then fewest deaths.
func (s *Store) Leaderboard(run int64, limit int) ([]PilotRow, error) {
	rows, err := s.conn.Query(`
		SELECT run, ship, shots, kills, deaths FROM pilots
		WHERE run = ?
		ORDER BY kills DESC, deaths ASC, ship ASC
		LIMIT ?
	`, run, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var result []PilotRow
	for rows.Next() {
		var p PilotRow
		if err := rows.Scan(&p.Run, &p.Ship, &p.Shots, &p.Kills, &p.Deaths); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// EventCounts returns how many events of each kind a run produced.
func (s *Store) EventCounts(run int64) (map[Kind]int, error) {
	rows, err := s.conn.Query(`SELECT kind, COUNT(*) FROM events WHERE run = ? GROUP BY kind`, run)
	if err != nil {
		return nil, fmt.Errorf("query event counts: %w", err)
	}
	defer rows.Close()

	result := make(map[Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		result[Kind(kind)] = n
	}
	return result, rows.Err()
}
