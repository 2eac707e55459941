// Package livematch replicates one live match from a single authoritative
// scorekeeper session to any number of read-only observers through a shared
// document store.
package livematch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

// ErrWriterConflict is returned by StartNewMatch when another scorekeeper
// holds a live lease on the shared document.
var ErrWriterConflict = errors.New("livematch: another scorekeeper is live on this document")

// WriteHealth describes the mirror's write path as seen by the scorekeeper.
type WriteHealth string

const (
	HealthConnected WriteHealth = "CONNECTED"
	HealthDegraded  WriteHealth = "DEGRADED"
)

// Config holds synchronizer tuning.
type Config struct {
	// Key is the shared document key for the current match.
	Key string

	// TickSampleInterval is the minimum spacing between pushed clock
	// readings while the match is not close to expiry.
	TickSampleInterval time.Duration

	// NearExpirySeconds is the threshold below which every clock reading
	// is pushed.
	NearExpirySeconds int

	// MaxRetries bounds re-attempts of a failed mirror write.
	MaxRetries int

	// RetryBaseDelay is the first backoff step; it doubles per attempt.
	RetryBaseDelay time.Duration

	// MaxPending bounds the retry queue. The oldest entry is dropped when
	// the queue is full.
	MaxPending int

	// LeaseTimeout is how stale a foreign writer's last update must be
	// before its lease is considered abandoned.
	LeaseTimeout time.Duration
}

// DefaultConfig returns synchronizer defaults.
func DefaultConfig() Config {
	return Config{
		Key:                "live_match/current",
		TickSampleInterval: 15 * time.Second,
		NearExpirySeconds:  10,
		MaxRetries:         5,
		RetryBaseDelay:     time.Second,
		MaxPending:         64,
		LeaseTimeout:       2 * time.Minute,
	}
}

// MatchInfo identifies the match a reset installs into the shared document.
type MatchInfo struct {
	MatchNumber  int
	Pairing      models.Pairing
	TeamALabel   string
	TeamBLabel   string
	StandbyLabel string
	MatchSeconds int

	// TakeOver forces the reset through a live foreign writer lease.
	TakeOver bool
}

// pendingWrite is a failed mirror write awaiting re-attempt.
type pendingWrite struct {
	name        string
	matchNumber int
	attempts    int
	nextAttempt time.Time
	fn          func(context.Context) error
}

// Synchronizer is the single-writer side of the replication protocol. All
// mirror writes are contained: a failure is logged and queued for bounded
// retry, and never blocks or rolls back the caller's local state.
type Synchronizer struct {
	store    docstore.Store
	clock    clockwork.Clock
	config   Config
	writerID string

	mu            sync.Mutex
	match         MatchInfo
	started       bool
	finished      bool
	lastClockPush time.Time
	pending       []*pendingWrite

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSynchronizer creates a synchronizer writing through store.
func NewSynchronizer(store docstore.Store, clock clockwork.Clock, config Config) *Synchronizer {
	return &Synchronizer{
		store:    store,
		clock:    clock,
		config:   config,
		writerID: uuid.New().String(),
		stopChan: make(chan struct{}),
	}
}

// WriterID returns this session's lease identity.
func (s *Synchronizer) WriterID() string {
	return s.writerID
}

// Start launches the retry loop.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("synchronizer already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.retryLoop(ctx)

	log.Info().
		Str("key", s.config.Key).
		Str("writer_id", s.writerID).
		Msg("live match synchronizer started")
	return nil
}

// Stop shuts down the retry loop.
func (s *Synchronizer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("synchronizer not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	log.Info().Str("key", s.config.Key).Msg("live match synchronizer stopped")
	return nil
}

// Health reports CONNECTED when no mirror write is awaiting retry.
func (s *Synchronizer) Health() WriteHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return HealthConnected
	}
	return HealthDegraded
}

// StartNewMatch overwrites the shared document wholesale with a fresh
// snapshot for the given match: empty event list, full clock, finished flag
// down. A full replace rather than a merge guarantees no field from a prior
// match survives into the new match's view. Pending retries from the
// superseded match are discarded.
//
// The only error returned is ErrWriterConflict; store failures are contained
// like every other mirror write.
func (s *Synchronizer) StartNewMatch(ctx context.Context, match MatchInfo) error {
	if !match.TakeOver {
		if err := s.checkLease(ctx); err != nil {
			return err
		}
	}

	now := s.clock.Now()
	secondsLeft := match.MatchSeconds
	snap := &models.LiveMatchSnapshot{
		MatchNumber:  match.MatchNumber,
		TeamAID:      match.Pairing.TeamAID,
		TeamBID:      match.Pairing.TeamBID,
		StandbyID:    match.Pairing.StandbyID,
		TeamALabel:   match.TeamALabel,
		TeamBLabel:   match.TeamBLabel,
		StandbyLabel: match.StandbyLabel,
		Events:       []models.MatchEvent{},
		MatchSeconds: match.MatchSeconds,
		SecondsLeft:  &secondsLeft,
		IsFinished:   false,
		FinalSummary: nil,
		WriterID:     s.writerID,
		CreatedAt:    now,
		LastUpdated:  now,
		FinishedAt:   nil,
	}

	s.mu.Lock()
	s.match = match
	s.started = true
	s.finished = false
	s.lastClockPush = time.Time{}
	s.pending = nil
	s.mu.Unlock()

	s.submit(ctx, "reset", match.MatchNumber, func(ctx context.Context) error {
		doc, err := snapshotToDocument(snap)
		if err != nil {
			return err
		}
		return s.store.Put(ctx, s.config.Key, doc)
	})

	log.Info().
		Int("match_number", match.MatchNumber).
		Str("team_a", string(match.Pairing.TeamAID)).
		Str("team_b", string(match.Pairing.TeamBID)).
		Str("standby", string(match.Pairing.StandbyID)).
		Msg("live match reset")
	return nil
}

// AppendEvent mirrors one scoring action: an add-only append to the event
// array plus a refreshed summary and clock reading. When the document is
// missing (a race with a concurrent reset) the append falls back to a
// create-with-merge carrying the single event.
func (s *Synchronizer) AppendEvent(ctx context.Context, ev models.MatchEvent, secondsLeft int) {
	s.mu.Lock()
	if !s.started || s.finished {
		s.mu.Unlock()
		log.Warn().Str("event_id", ev.ID).Msg("event append ignored outside a live match")
		return
	}
	matchNo := s.match.MatchNumber
	s.mu.Unlock()

	s.submit(ctx, "append_event", matchNo, func(ctx context.Context) error {
		err := s.store.AppendToArray(ctx, s.config.Key, "events", ev)
		if errors.Is(err, docstore.ErrNotFound) {
			fields := s.summaryFields(secondsLeft)
			fields["events"] = []models.MatchEvent{ev}
			return s.store.Merge(ctx, s.config.Key, fields)
		}
		if err != nil {
			return err
		}
		return s.store.Merge(ctx, s.config.Key, s.summaryFields(secondsLeft))
	})
}

// OverwriteEvents mirrors a destructive edit (delete/undo) by rewriting the
// whole event array so the observer's list exactly matches the authoritative
// one.
func (s *Synchronizer) OverwriteEvents(ctx context.Context, evs []models.MatchEvent, secondsLeft int) {
	s.mu.Lock()
	if !s.started || s.finished {
		s.mu.Unlock()
		log.Warn().Msg("event overwrite ignored outside a live match")
		return
	}
	matchNo := s.match.MatchNumber
	s.mu.Unlock()

	if evs == nil {
		evs = []models.MatchEvent{}
	}

	s.submit(ctx, "overwrite_events", matchNo, func(ctx context.Context) error {
		fields := s.summaryFields(secondsLeft)
		fields["events"] = evs
		return s.store.Merge(ctx, s.config.Key, fields)
	})
}

// PushClock mirrors the remaining-seconds value, throttled to one write per
// sampling interval except close to expiry, where every reading goes out so
// observers land the final countdown accurately.
func (s *Synchronizer) PushClock(ctx context.Context, secondsLeft int) {
	s.mu.Lock()
	if !s.started || s.finished {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	if secondsLeft > s.config.NearExpirySeconds &&
		!s.lastClockPush.IsZero() &&
		now.Sub(s.lastClockPush) < s.config.TickSampleInterval {
		s.mu.Unlock()
		return
	}
	s.lastClockPush = now
	matchNo := s.match.MatchNumber
	s.mu.Unlock()

	s.submit(ctx, "clock_tick", matchNo, func(ctx context.Context) error {
		return s.store.Merge(ctx, s.config.Key, docstore.Fields{
			"seconds_left": secondsLeft,
			"writer_id":    s.writerID,
			"last_updated": s.clock.Now(),
		})
	})
}

// Finalize marks the match finished, attaches the immutable final summary and
// freezes the event list. Further appends and ticks are ignored until the
// next StartNewMatch.
func (s *Synchronizer) Finalize(ctx context.Context, goalsA, goalsB int) {
	s.mu.Lock()
	if !s.started || s.finished {
		s.mu.Unlock()
		log.Warn().Msg("finalize ignored outside a live match")
		return
	}
	s.finished = true
	match := s.match
	s.mu.Unlock()

	now := s.clock.Now()
	summary := models.FinalSummary{
		MatchNumber:  match.MatchNumber,
		TeamAID:      match.Pairing.TeamAID,
		TeamBID:      match.Pairing.TeamBID,
		StandbyID:    match.Pairing.StandbyID,
		TeamALabel:   match.TeamALabel,
		TeamBLabel:   match.TeamBLabel,
		StandbyLabel: match.StandbyLabel,
		GoalsA:       goalsA,
		GoalsB:       goalsB,
	}

	s.submit(ctx, "finalize", match.MatchNumber, func(ctx context.Context) error {
		return s.store.Merge(ctx, s.config.Key, docstore.Fields{
			"is_finished":   true,
			"final_summary": summary,
			"seconds_left":  0,
			"writer_id":     s.writerID,
			"finished_at":   now,
			"last_updated":  now,
		})
	})

	log.Info().
		Int("match_number", match.MatchNumber).
		Int("goals_a", goalsA).
		Int("goals_b", goalsB).
		Msg("live match finalized")
}

// summaryFields are the merge fields refreshed alongside every event write.
func (s *Synchronizer) summaryFields(secondsLeft int) docstore.Fields {
	s.mu.Lock()
	match := s.match
	s.mu.Unlock()

	return docstore.Fields{
		"match_number":  match.MatchNumber,
		"team_a_id":     match.Pairing.TeamAID,
		"team_b_id":     match.Pairing.TeamBID,
		"standby_id":    match.Pairing.StandbyID,
		"team_a_label":  match.TeamALabel,
		"team_b_label":  match.TeamBLabel,
		"standby_label": match.StandbyLabel,
		"match_seconds": match.MatchSeconds,
		"seconds_left":  secondsLeft,
		"writer_id":     s.writerID,
		"last_updated":  s.clock.Now(),
	}
}

// checkLease inspects the shared document for a live foreign writer.
func (s *Synchronizer) checkLease(ctx context.Context) error {
	doc, err := s.store.Get(ctx, s.config.Key)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		// Cannot read the lease; do not block the local match on it.
		log.Error().Err(err).Str("key", s.config.Key).Msg("lease check failed, proceeding")
		return nil
	}

	snap, err := SnapshotFromDocument(doc)
	if err != nil {
		log.Error().Err(err).Str("key", s.config.Key).Msg("lease document malformed, proceeding")
		return nil
	}

	if snap.WriterID == "" || snap.WriterID == s.writerID || snap.IsFinished {
		return nil
	}
	if s.clock.Now().Sub(snap.LastUpdated) > s.config.LeaseTimeout {
		return nil
	}
	return fmt.Errorf("%w: writer %s last updated %s",
		ErrWriterConflict, snap.WriterID, snap.LastUpdated.Format(time.RFC3339))
}

// submit attempts a mirror write immediately and queues it for retry on
// failure. The caller is never blocked on the outcome beyond the single
// attempt.
func (s *Synchronizer) submit(ctx context.Context, name string, matchNumber int, fn func(context.Context) error) {
	err := fn(ctx)
	if err == nil {
		return
	}

	log.Error().
		Err(err).
		Str("write", name).
		Int("match_number", matchNumber).
		Msg("mirror write failed, queued for retry")

	s.enqueue(&pendingWrite{
		name:        name,
		matchNumber: matchNumber,
		attempts:    1,
		nextAttempt: s.clock.Now().Add(s.config.RetryBaseDelay),
		fn:          fn,
	})
}

func (s *Synchronizer) enqueue(pw *pendingWrite) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started && pw.matchNumber != s.match.MatchNumber {
		// A reset superseded this write while it was in flight.
		return
	}
	if len(s.pending) >= s.config.MaxPending {
		dropped := s.pending[0]
		s.pending = s.pending[1:]
		log.Warn().
			Str("write", dropped.name).
			Int("match_number", dropped.matchNumber).
			Msg("retry queue full, dropping oldest write")
	}
	s.pending = append(s.pending, pw)
}

// retryLoop re-attempts queued writes with exponential backoff. Writes for a
// superseded match are discarded on reset, so a retry can never resurrect
// stale state into the current match's document.
func (s *Synchronizer) retryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.config.RetryBaseDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.Chan():
			s.processPending(ctx)
		}
	}
}

func (s *Synchronizer) processPending(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*pendingWrite
	var rest []*pendingWrite
	for _, pw := range s.pending {
		if now.Before(pw.nextAttempt) {
			rest = append(rest, pw)
		} else {
			due = append(due, pw)
		}
	}
	currentMatch := 0
	if s.started {
		currentMatch = s.match.MatchNumber
	}
	s.pending = rest
	s.mu.Unlock()

	for _, pw := range due {
		if currentMatch != 0 && pw.matchNumber != currentMatch {
			log.Debug().
				Str("write", pw.name).
				Int("match_number", pw.matchNumber).
				Msg("dropping retry for superseded match")
			continue
		}
		err := pw.fn(ctx)
		if err == nil {
			log.Info().
				Str("write", pw.name).
				Int("attempts", pw.attempts).
				Msg("mirror write recovered")
			continue
		}

		pw.attempts++
		if pw.attempts > s.config.MaxRetries {
			log.Error().
				Err(err).
				Str("write", pw.name).
				Int("match_number", pw.matchNumber).
				Msg("mirror write dropped after max retries")
			continue
		}

		backoff := s.config.RetryBaseDelay << uint(pw.attempts-1)
		pw.nextAttempt = now.Add(backoff)
		log.Warn().
			Err(err).
			Str("write", pw.name).
			Int("attempts", pw.attempts).
			Dur("backoff", backoff).
			Msg("mirror write still failing")
		s.enqueue(pw)
	}
}
