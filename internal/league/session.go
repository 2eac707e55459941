// Package league runs the scorekeeper side of a league night: it owns the
// authoritative pairing, streak table and event log, rotates teams after each
// match and mirrors the live match through the synchronizer.
package league

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/livematch"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/matchlog"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/rotation"
)

var (
	// ErrMatchInProgress is returned when an operation needs the pitch free.
	ErrMatchInProgress = errors.New("league: a match is already in progress")

	// ErrNoMatchInProgress is returned when an operation needs a live match.
	ErrNoMatchInProgress = errors.New("league: no match in progress")

	// ErrTeamNotOnField is returned when an event names a team outside the
	// current on-field pair.
	ErrTeamNotOnField = errors.New("league: team is not on the field")

	// ErrNothingToUndo is returned when the live event log is empty.
	ErrNothingToUndo = errors.New("league: no event to undo")
)

// Config holds session settings.
type Config struct {
	MatchDuration time.Duration
}

// DefaultConfig returns the standard ten-minute match.
func DefaultConfig() Config {
	return Config{MatchDuration: 10 * time.Minute}
}

// Session is the single authoritative scorekeeping session. Local state is
// always updated first; the shared document is a best-effort mirror.
type Session struct {
	syncer *livematch.Synchronizer
	store  *matchlog.Store
	clock  clockwork.Clock
	cfg    Config

	mu         sync.Mutex
	teams      map[models.TeamID]models.Team
	pairing    models.Pairing
	streaks    models.StreakTable
	matchClock *livematch.MatchClock
	matchNo    int
	live       []models.MatchEvent
	inMatch    bool
}

// NewSession builds a session for the given three teams and initial pairing,
// replaying the match log to restore the match counter and streak table.
func NewSession(ctx context.Context, teams []models.Team, pairing models.Pairing,
	syncer *livematch.Synchronizer, store *matchlog.Store,
	clock clockwork.Clock, cfg Config) (*Session, error) {

	if len(teams) != 3 {
		return nil, fmt.Errorf("league: expected 3 teams, got %d", len(teams))
	}

	byID := make(map[models.TeamID]models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	if err := validatePairing(byID, pairing); err != nil {
		return nil, err
	}

	s := &Session{
		syncer:     syncer,
		store:      store,
		clock:      clock,
		cfg:        cfg,
		teams:      byID,
		pairing:    pairing,
		streaks:    models.StreakTable{},
		matchClock: livematch.NewMatchClock(clock, cfg.MatchDuration),
	}
	for id := range byID {
		s.streaks[id] = 0
	}

	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// restore replays recorded results through the rotation engine so the streak
// table and match counter survive a process restart.
func (s *Session) restore(ctx context.Context) error {
	results, err := s.store.Results(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	for _, res := range results {
		out := rotation.ComputeNextFromResult(s.streaks, rotation.Result{
			TeamAID:   res.TeamAID,
			TeamBID:   res.TeamBID,
			StandbyID: res.StandbyID,
			GoalsA:    res.GoalsA,
			GoalsB:    res.GoalsB,
		})
		s.streaks = out.UpdatedStreaks
		s.matchNo = res.MatchNumber
	}

	if len(results) > 0 {
		log.Info().
			Int("matches_replayed", len(results)).
			Int("last_match", s.matchNo).
			Msg("session restored from match log")
	}
	return nil
}

// SetPairing overrides the pairing before kickoff.
func (s *Session) SetPairing(p models.Pairing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inMatch {
		return ErrMatchInProgress
	}
	if err := validatePairing(s.teams, p); err != nil {
		return err
	}
	s.pairing = p
	return nil
}

// Pairing returns the current pairing.
func (s *Session) Pairing() models.Pairing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairing
}

// Streaks returns a copy of the current streak table.
func (s *Session) Streaks() models.StreakTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaks.Clone()
}

// LiveEvents returns a copy of the current match's event log.
func (s *Session) LiveEvents() []models.MatchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MatchEvent, len(s.live))
	copy(out, s.live)
	return out
}

// Health reports the mirror write-path health.
func (s *Session) Health() livematch.WriteHealth {
	return s.syncer.Health()
}

// StartMatch kicks off the next match: resets the clock, clears the live
// log and hard-resets the shared document for the new pairing.
func (s *Session) StartMatch(ctx context.Context) error {
	s.mu.Lock()
	if s.inMatch {
		s.mu.Unlock()
		return ErrMatchInProgress
	}

	matchNo := s.matchNo + 1
	pairing := s.pairing
	info := livematch.MatchInfo{
		MatchNumber:  matchNo,
		Pairing:      pairing,
		TeamALabel:   s.teams[pairing.TeamAID].Label,
		TeamBLabel:   s.teams[pairing.TeamBID].Label,
		StandbyLabel: s.teams[pairing.StandbyID].Label,
		MatchSeconds: int(s.cfg.MatchDuration.Seconds()),
	}
	s.mu.Unlock()

	if err := s.syncer.StartNewMatch(ctx, info); err != nil {
		return err
	}

	s.mu.Lock()
	s.inMatch = true
	s.live = nil
	s.matchClock.Reset(s.cfg.MatchDuration)
	s.matchClock.Start()
	s.mu.Unlock()

	log.Info().
		Int("match_number", matchNo).
		Str("team_a", string(pairing.TeamAID)).
		Str("team_b", string(pairing.TeamBID)).
		Msg("match started")
	return nil
}

// LogGoal records a goal for an on-field team, local log first and mirror
// second.
func (s *Session) LogGoal(ctx context.Context, team models.TeamID, scorer string, assist *string) (models.MatchEvent, error) {
	return s.logEvent(ctx, models.EventTypeGoal, team, scorer, assist)
}

// LogShibobo records a skill-move event. Shibobos never affect the score.
func (s *Session) LogShibobo(ctx context.Context, team models.TeamID, scorer string) (models.MatchEvent, error) {
	return s.logEvent(ctx, models.EventTypeShibobo, team, scorer, nil)
}

func (s *Session) logEvent(ctx context.Context, evType models.EventType, team models.TeamID, scorer string, assist *string) (models.MatchEvent, error) {
	s.mu.Lock()
	if !s.inMatch {
		s.mu.Unlock()
		return models.MatchEvent{}, ErrNoMatchInProgress
	}
	if team != s.pairing.TeamAID && team != s.pairing.TeamBID {
		s.mu.Unlock()
		return models.MatchEvent{}, fmt.Errorf("%w: %s", ErrTeamNotOnField, team)
	}

	ev := models.MatchEvent{
		ID:          uuid.New().String(),
		Type:        evType,
		TeamID:      team,
		Scorer:      scorer,
		Assist:      assist,
		TimeSeconds: s.matchClock.Elapsed(),
	}
	s.live = append(s.live, ev)
	secondsLeft := s.matchClock.SecondsLeft()
	s.mu.Unlock()

	s.syncer.AppendEvent(ctx, ev, secondsLeft)
	return ev, nil
}

// UndoLastEvent removes the most recent event from the authoritative log and
// mirrors the edit as a full event-array overwrite.
func (s *Session) UndoLastEvent(ctx context.Context) error {
	s.mu.Lock()
	if !s.inMatch {
		s.mu.Unlock()
		return ErrNoMatchInProgress
	}
	if len(s.live) == 0 {
		s.mu.Unlock()
		return ErrNothingToUndo
	}

	s.live = s.live[:len(s.live)-1]
	evs := make([]models.MatchEvent, len(s.live))
	copy(evs, s.live)
	secondsLeft := s.matchClock.SecondsLeft()
	s.mu.Unlock()

	s.syncer.OverwriteEvents(ctx, evs, secondsLeft)
	return nil
}

// PushClockTick mirrors the current countdown reading. The synchronizer
// throttles the write volume.
func (s *Session) PushClockTick(ctx context.Context) {
	s.mu.Lock()
	if !s.inMatch {
		s.mu.Unlock()
		return
	}
	secondsLeft := s.matchClock.SecondsLeft()
	s.mu.Unlock()

	s.syncer.PushClock(ctx, secondsLeft)
}

// RunClockTicks pushes a reading every second until ctx is cancelled.
func (s *Session) RunClockTicks(ctx context.Context) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.PushClockTick(ctx)
		}
	}
}

// ConcludeMatch confirms the match ended: it freezes the shared mirror,
// records the immutable result and tagged events, runs the rotation exactly
// once and installs the next pairing.
func (s *Session) ConcludeMatch(ctx context.Context) (models.MatchResult, error) {
	s.mu.Lock()
	if !s.inMatch {
		s.mu.Unlock()
		return models.MatchResult{}, ErrNoMatchInProgress
	}

	matchNo := s.matchNo + 1
	pairing := s.pairing
	goalsA := models.CountGoals(s.live, pairing.TeamAID)
	goalsB := models.CountGoals(s.live, pairing.TeamBID)

	res := models.MatchResult{
		MatchNumber: matchNo,
		TeamAID:     pairing.TeamAID,
		TeamBID:     pairing.TeamBID,
		StandbyID:   pairing.StandbyID,
		GoalsA:      goalsA,
		GoalsB:      goalsB,
		IsDraw:      goalsA == goalsB,
		ConcludedAt: s.clock.Now(),
	}
	if goalsA > goalsB {
		id := pairing.TeamAID
		res.WinnerID = &id
	} else if goalsB > goalsA {
		id := pairing.TeamBID
		res.WinnerID = &id
	}

	tagged := make([]models.MatchEvent, len(s.live))
	copy(tagged, s.live)
	for i := range tagged {
		tagged[i].MatchNumber = matchNo
	}
	streaks := s.streaks
	s.mu.Unlock()

	s.syncer.Finalize(ctx, goalsA, goalsB)

	if err := s.store.AppendResult(ctx, res); err != nil {
		return models.MatchResult{}, err
	}
	if err := s.store.AppendEvents(ctx, tagged); err != nil {
		return models.MatchResult{}, err
	}

	out := rotation.ComputeNextFromResult(streaks, rotation.Result{
		TeamAID:   pairing.TeamAID,
		TeamBID:   pairing.TeamBID,
		StandbyID: pairing.StandbyID,
		GoalsA:    goalsA,
		GoalsB:    goalsB,
	})

	s.mu.Lock()
	s.matchNo = matchNo
	s.streaks = out.UpdatedStreaks
	s.pairing = out.NextPairing()
	s.inMatch = false
	s.live = nil
	s.matchClock.Pause()
	s.mu.Unlock()

	log.Info().
		Int("match_number", matchNo).
		Int("goals_a", goalsA).
		Int("goals_b", goalsB).
		Bool("draw", res.IsDraw).
		Str("next_team_a", string(out.NextTeamAID)).
		Str("next_team_b", string(out.NextTeamBID)).
		Str("next_standby", string(out.NextStandbyID)).
		Msg("match concluded")
	return res, nil
}

func validatePairing(teams map[models.TeamID]models.Team, p models.Pairing) error {
	if p.TeamAID == p.TeamBID || p.TeamAID == p.StandbyID || p.TeamBID == p.StandbyID {
		return fmt.Errorf("league: pairing ids must be distinct")
	}
	for _, id := range []models.TeamID{p.TeamAID, p.TeamBID, p.StandbyID} {
		if _, ok := teams[id]; !ok {
			return fmt.Errorf("league: unknown team %s", id)
		}
	}
	return nil
}
