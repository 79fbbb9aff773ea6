package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type MatchRow struct {
	MatchID    string    `json:"match_id"`
	EndedAt    time.Time `json:"ended_at"`
	EndTick    uint64    `json:"end_tick"`
	DurationMS int64     `json:"duration_ms"`
	WinnerID   int       `json:"winner_id"`
	Ranking    []RankRow `json:"ranking"`
}

type RankRow struct {
	Rank     int    `json:"rank"`
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type SessionRow struct {
	SessionID string     `json:"session_id"`
	MatchID   string     `json:"match_id"`
	PlayerID  int        `json:"player_id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Remote    string     `json:"remote"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
}

// Reader runs read queries against an index database.
type Reader struct {
	db    *sql.DB
	owned bool
}

// Reader shares the writer's connection. Rows still queued or in an open
// batch are not visible yet.
func (s *SQLiteIndex) Reader() *Reader { return &Reader{db: s.db} }

// OpenReader opens an existing index database for queries only.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Reader{db: db, owned: true}, nil
}

func (r *Reader) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

// RecentMatches returns finished matches, newest first, with their ranking.
func (r *Reader) RecentMatches(ctx context.Context, limit int) ([]MatchRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, ended_at, end_tick, duration_ms, winner_id FROM matches ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	var out []MatchRow
	for rows.Next() {
		var (
			m     MatchRow
			ended string
			tick  int64
		)
		if err := rows.Scan(&m.MatchID, &ended, &tick, &m.DurationMS, &m.WinnerID); err != nil {
			_ = rows.Close()
			return nil, err
		}
		m.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		m.EndTick = uint64(tick)
		out = append(out, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// One connection: rankings are fetched after the match cursor is closed.
	for i := range out {
		rk, err := r.ranking(ctx, out[i].MatchID)
		if err != nil {
			return nil, err
		}
		out[i].Ranking = rk
	}
	return out, nil
}

func (r *Reader) ranking(ctx context.Context, matchID string) ([]RankRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rank, player_id, name, score FROM match_ranking WHERE match_id=? ORDER BY rank`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RankRow
	for rows.Next() {
		var rr RankRow
		if err := rows.Scan(&rr.Rank, &rr.PlayerID, &rr.Name, &rr.Score); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// RecentSessions returns sessions, most recently joined first. LeftAt is nil
// while the session is still connected (or the server stopped uncleanly).
func (r *Reader) RecentSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, match_id, player_id, name, color, remote, joined_at, left_at FROM sessions ORDER BY joined_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRow
	for rows.Next() {
		var (
			sr     SessionRow
			joined string
			left   sql.NullString
		)
		if err := rows.Scan(&sr.SessionID, &sr.MatchID, &sr.PlayerID, &sr.Name, &sr.Color, &sr.Remote, &joined, &left); err != nil {
			return nil, err
		}
		sr.JoinedAt, _ = time.Parse(time.RFC3339Nano, joined)
		if left.Valid {
			if t, err := time.Parse(time.RFC3339Nano, left.String); err == nil {
				sr.LeftAt = &t
			}
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Counts reports row totals per table, for the admin CLI.
func (r *Reader) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, table := range []string{"sessions", "join_rejections", "restarts", "matches"} {
		var n int64
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, err
		}
		out[table] = n
	}
	return out, nil
}
