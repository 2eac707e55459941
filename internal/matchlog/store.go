// Package matchlog persists the scorekeeper's authoritative record of
// concluded matches and their tagged events to local device storage. The
// shared live document is only ever a mirror of this log, never the source
// of truth.
package matchlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_results (
    match_number INTEGER PRIMARY KEY,
    team_a_id    TEXT NOT NULL,
    team_b_id    TEXT NOT NULL,
    standby_id   TEXT NOT NULL,
    goals_a      INTEGER NOT NULL,
    goals_b      INTEGER NOT NULL,
    winner_id    TEXT,
    is_draw      INTEGER NOT NULL,
    concluded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_events (
    id           TEXT PRIMARY KEY,
    match_number INTEGER NOT NULL,
    type         TEXT NOT NULL,
    team_id      TEXT NOT NULL,
    scorer       TEXT NOT NULL,
    assist       TEXT,
    time_seconds INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_match_events_match
    ON match_events (match_number);
`

// Store is the sqlite-backed match log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the log at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open match log: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply match log schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendResult records a concluded match. Results are immutable; a duplicate
// match number is a caller bug and surfaces as a constraint error.
func (s *Store) AppendResult(ctx context.Context, res models.MatchResult) error {
	var winner *string
	if res.WinnerID != nil {
		w := string(*res.WinnerID)
		winner = &w
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_results
		(match_number, team_a_id, team_b_id, standby_id, goals_a, goals_b, winner_id, is_draw, concluded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.MatchNumber, string(res.TeamAID), string(res.TeamBID), string(res.StandbyID),
		res.GoalsA, res.GoalsB, winner, boolToInt(res.IsDraw),
		res.ConcludedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append match result %d: %w", res.MatchNumber, err)
	}
	return nil
}

// AppendEvents records the tagged events of a concluded match.
func (s *Store) AppendEvents(ctx context.Context, evs []models.MatchEvent) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append match events: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range evs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO match_events
			(id, match_number, type, team_id, scorer, assist, time_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.MatchNumber, string(ev.Type), string(ev.TeamID),
			ev.Scorer, ev.Assist, ev.TimeSeconds); err != nil {
			return fmt.Errorf("append match event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append match events: %w", err)
	}
	return nil
}

// Results returns all concluded matches in match-number order.
func (s *Store) Results(ctx context.Context) ([]models.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_number, team_a_id, team_b_id, standby_id,
		       goals_a, goals_b, winner_id, is_draw, concluded_at
		FROM match_results ORDER BY match_number`)
	if err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	var out []models.MatchResult
	for rows.Next() {
		var (
			res         models.MatchResult
			teamA       string
			teamB       string
			standby     string
			winner      sql.NullString
			isDraw      int
			concludedAt string
		)
		if err := rows.Scan(&res.MatchNumber, &teamA, &teamB, &standby,
			&res.GoalsA, &res.GoalsB, &winner, &isDraw, &concludedAt); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}

		res.TeamAID = models.TeamID(teamA)
		res.TeamBID = models.TeamID(teamB)
		res.StandbyID = models.TeamID(standby)
		res.IsDraw = isDraw != 0
		if winner.Valid {
			id := models.TeamID(winner.String)
			res.WinnerID = &id
		}
		if ts, err := time.Parse(time.RFC3339Nano, concludedAt); err == nil {
			res.ConcludedAt = ts
		}

		out = append(out, res)
	}
	return out, rows.Err()
}

// EventsForMatch returns the tagged events of one concluded match in logged
// order.
func (s *Store) EventsForMatch(ctx context.Context, matchNumber int) ([]models.MatchEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_number, type, team_id, scorer, assist, time_seconds
		FROM match_events WHERE match_number = ? ORDER BY rowid`, matchNumber)
	if err != nil {
		return nil, fmt.Errorf("list events for match %d: %w", matchNumber, err)
	}
	defer rows.Close()

	var out []models.MatchEvent
	for rows.Next() {
		var (
			ev     models.MatchEvent
			evType string
			teamID string
			assist sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.MatchNumber, &evType, &teamID,
			&ev.Scorer, &assist, &ev.TimeSeconds); err != nil {
			return nil, fmt.Errorf("scan match event: %w", err)
		}

		ev.Type = models.EventType(evType)
		ev.TeamID = models.TeamID(teamID)
		if assist.Valid {
			a := assist.String
			ev.Assist = &a
		}

		out = append(out, ev)
	}
	return out, rows.Err()
}

// LastMatchNumber returns the highest recorded match number, 0 when the log
// is empty.
func (s *Store) LastMatchNumber(ctx context.Context) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(match_number) FROM match_results`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("last match number: %w", err)
	}
	return int(n.Int64), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
