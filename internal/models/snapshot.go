package models

import "time"

// FinalSummary is the immutable final-score record attached to a snapshot when
// a match is confirmed ended.
type FinalSummary struct {
	MatchNumber  int    `json:"match_number"`
	TeamAID      TeamID `json:"team_a_id"`
	TeamBID      TeamID `json:"team_b_id"`
	StandbyID    TeamID `json:"standby_id"`
	TeamALabel   string `json:"team_a_label"`
	TeamBLabel   string `json:"team_b_label"`
	StandbyLabel string `json:"standby_label"`
	GoalsA       int    `json:"goals_a"`
	GoalsB       int    `json:"goals_b"`
}

// LiveMatchSnapshot is the shared document describing an in-progress match.
// Exactly one scorekeeper session writes it; any number of observers read it.
// It is overwritten wholesale when a new match starts so no field from a prior
// match can survive into the new match's view.
type LiveMatchSnapshot struct {
	MatchNumber  int           `json:"match_number"`
	TeamAID      TeamID        `json:"team_a_id"`
	TeamBID      TeamID        `json:"team_b_id"`
	StandbyID    TeamID        `json:"standby_id"`
	TeamALabel   string        `json:"team_a_label"`
	TeamBLabel   string        `json:"team_b_label"`
	StandbyLabel string        `json:"standby_label"`
	Events       []MatchEvent  `json:"events"`
	MatchSeconds int           `json:"match_seconds"`
	SecondsLeft  *int          `json:"seconds_left"`
	IsFinished   bool          `json:"is_finished"`
	FinalSummary *FinalSummary `json:"final_summary"`
	WriterID     string        `json:"writer_id"`
	CreatedAt    time.Time     `json:"created_at"`
	LastUpdated  time.Time     `json:"last_updated"`
	FinishedAt   *time.Time    `json:"finished_at"`
}

// GoalsFor counts goal-type events belonging to the given team. Observers use
// this instead of trusting a stored counter so the event log and the displayed
// score cannot diverge.
func (s *LiveMatchSnapshot) GoalsFor(id TeamID) int {
	return CountGoals(s.Events, id)
}

// CountGoals counts goal-type events in evs belonging to the given team.
func CountGoals(evs []MatchEvent, id TeamID) int {
	n := 0
	for _, ev := range evs {
		if ev.Type == EventTypeGoal && ev.TeamID == id {
			n++
		}
	}
	return n
}
