package game

import "time"

type EventKind string

const (
	EventJoin     EventKind = "join"
	EventJoinFull EventKind = "join_full"
	EventLeave    EventKind = "leave"
	EventRestart  EventKind = "restart"
	EventGameOver EventKind = "game_over"
)

// Event is one session or match lifecycle fact. Events are produced under the
// arena lock and handed to the EventLogger after it is released.
type Event struct {
	Time    time.Time `json:"time"`
	Tick    uint64    `json:"tick"`
	MatchID string    `json:"match_id"`
	Kind    EventKind `json:"kind"`

	SessionID string `json:"session_id,omitempty"`
	// PlayerID is -1 for events not tied to a player.
	PlayerID int    `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Color    string `json:"color,omitempty"`
	Remote   string `json:"remote,omitempty"`

	// game_over only.
	WinnerID   int       `json:"winner_id,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Ranking    []RankRow `json:"ranking,omitempty"`
}

type RankRow struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type EventLogger interface {
	WriteEvent(e Event) error
}

// MultiEventLogger fans out to every non-nil logger and reports the first error.
type MultiEventLogger []EventLogger

func (m MultiEventLogger) WriteEvent(e Event) error {
	var first error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteEvent(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
