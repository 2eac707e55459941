package models

import "time"

// TeamID is an opaque identifier for a league team. It is a distinct type so
// team ids cannot be mixed up with player names or document keys.
type TeamID string

func (id TeamID) String() string {
	return string(id)
}

// Team represents one of the three league teams.
type Team struct {
	ID        TeamID    `json:"id"`
	Label     string    `json:"label"`
	Captain   string    `json:"captain"`
	Players   []string  `json:"players"`
	CreatedAt time.Time `json:"created_at"`
}

// Pairing is the current on-field/standby triple. All three ids are distinct
// and drawn from the league's three teams.
type Pairing struct {
	TeamAID   TeamID `json:"team_a_id"`
	TeamBID   TeamID `json:"team_b_id"`
	StandbyID TeamID `json:"standby_id"`
}

// Contains reports whether the pairing involves the given team.
func (p Pairing) Contains(id TeamID) bool {
	return p.TeamAID == id || p.TeamBID == id || p.StandbyID == id
}

// StreakTable maps team id to its running win-streak counter. Every team that
// has ever appeared in a pairing has an entry, defaulting to 0.
type StreakTable map[TeamID]int

// Clone returns an independent copy of the table.
func (s StreakTable) Clone() StreakTable {
	out := make(StreakTable, len(s))
	for id, n := range s {
		out[id] = n
	}
	return out
}

// Get returns the streak for a team, defaulting to 0 when absent.
func (s StreakTable) Get(id TeamID) int {
	return s[id]
}
