// Package rotation implements the winner-stays-on scheduling rule that decides
// which two teams take the field and which stands by after each match.
package rotation

import (
	"sort"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

// Result describes a concluded match for rotation purposes: the three distinct
// team ids involved and each on-field team's goal count.
type Result struct {
	TeamAID   models.TeamID
	TeamBID   models.TeamID
	StandbyID models.TeamID
	GoalsA    int
	GoalsB    int
}

// Outcome is the rotation decision for the next match.
type Outcome struct {
	NextTeamAID    models.TeamID
	NextTeamBID    models.TeamID
	NextStandbyID  models.TeamID
	UpdatedStreaks models.StreakTable
	WinnerID       *models.TeamID
	IsDraw         bool
}

// NextPairing returns the outcome's pairing triple.
func (o Outcome) NextPairing() models.Pairing {
	return models.Pairing{
		TeamAID:   o.NextTeamAID,
		TeamBID:   o.NextTeamBID,
		StandbyID: o.NextStandbyID,
	}
}

// ComputeNextFromResult decides the next pairing and streak table from a
// concluded match.
//
// Win: the winner stays on as the new team A, the standby team comes on as the
// new team B and the loser goes to standby. The winner's streak increments,
// the loser's resets to 0 and the standby's is untouched.
//
// Draw: the current champion (the team holding the strictly-highest positive
// streak across the whole table) is relegated to standby with its streak
// reset; the other on-field team stays on as the new team A and the previous
// standby comes on as new team B. When no team holds a positive streak, team A
// is treated as the champion. Equal highest positive streaks are broken by
// lowest team id.
//
// The function never mutates its inputs. Callers guarantee three distinct ids
// and non-negative goal counts.
func ComputeNextFromResult(streaks models.StreakTable, result Result) Outcome {
	updated := streaks.Clone()
	for _, id := range []models.TeamID{result.TeamAID, result.TeamBID, result.StandbyID} {
		if _, ok := updated[id]; !ok {
			updated[id] = 0
		}
	}

	if result.GoalsA != result.GoalsB {
		winner, loser := result.TeamAID, result.TeamBID
		if result.GoalsB > result.GoalsA {
			winner, loser = result.TeamBID, result.TeamAID
		}

		updated[winner]++
		updated[loser] = 0

		return Outcome{
			NextTeamAID:    winner,
			NextTeamBID:    result.StandbyID,
			NextStandbyID:  loser,
			UpdatedStreaks: updated,
			WinnerID:       &winner,
			IsDraw:         false,
		}
	}

	champion := championOf(updated, result.TeamAID)
	if champion != result.TeamAID && champion != result.TeamBID {
		// A positive streak can only be held off-field through out-of-band
		// edits; relegation must still pick an on-field team.
		champion = result.TeamAID
	}

	challenger := result.TeamAID
	if champion == result.TeamAID {
		challenger = result.TeamBID
	}

	updated[champion] = 0

	return Outcome{
		NextTeamAID:    challenger,
		NextTeamBID:    result.StandbyID,
		NextStandbyID:  champion,
		UpdatedStreaks: updated,
		WinnerID:       nil,
		IsDraw:         true,
	}
}

// championOf picks the team with the strictly-highest positive streak,
// breaking ties by lowest team id. Falls back to dflt when no team holds a
// positive streak.
func championOf(streaks models.StreakTable, dflt models.TeamID) models.TeamID {
	ids := make([]models.TeamID, 0, len(streaks))
	for id := range streaks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	champion := dflt
	best := 0
	for _, id := range ids {
		if streaks[id] > best {
			best = streaks[id]
			champion = id
		}
	}
	return champion
}
