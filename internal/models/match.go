package models

import "time"

// EventType defines the kind of in-match occurrence.
type EventType string

const (
	EventTypeGoal    EventType = "goal"
	EventTypeShibobo EventType = "shibobo"
)

// MatchEvent is an immutable record of one in-match occurrence. Assist is only
// meaningful for goal events. MatchNumber is 0 while the match is live and is
// stamped when the match is confirmed ended.
type MatchEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	TeamID      TeamID    `json:"team_id"`
	Scorer      string    `json:"scorer"`
	Assist      *string   `json:"assist,omitempty"`
	TimeSeconds int       `json:"time_seconds"`
	MatchNumber int       `json:"match_number,omitempty"`
}

// MatchResult is the immutable record of a concluded match. MatchNumber is
// strictly increasing and starts at 1. WinnerID is nil for a draw.
type MatchResult struct {
	MatchNumber int       `json:"match_number"`
	TeamAID     TeamID    `json:"team_a_id"`
	TeamBID     TeamID    `json:"team_b_id"`
	StandbyID   TeamID    `json:"standby_id"`
	GoalsA      int       `json:"goals_a"`
	GoalsB      int       `json:"goals_b"`
	WinnerID    *TeamID   `json:"winner_id,omitempty"`
	IsDraw      bool      `json:"is_draw"`
	ConcludedAt time.Time `json:"concluded_at"`
}
