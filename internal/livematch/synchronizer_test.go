package livematch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore/memory"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

const (
	teamX = models.TeamID("team-x")
	teamY = models.TeamID("team-y")
	teamZ = models.TeamID("team-z")
)

var errStoreDown = errors.New("store down")

// flakyStore wraps a real store and fails selected operations on demand.
type flakyStore struct {
	docstore.Store
	failPut    int
	failAppend int
	failMerge  int
}

func (f *flakyStore) Put(ctx context.Context, key string, doc docstore.Document) error {
	if f.failPut > 0 {
		f.failPut--
		return errStoreDown
	}
	return f.Store.Put(ctx, key, doc)
}

func (f *flakyStore) AppendToArray(ctx context.Context, key, field string, value any) error {
	if f.failAppend > 0 {
		f.failAppend--
		return errStoreDown
	}
	return f.Store.AppendToArray(ctx, key, field, value)
}

func (f *flakyStore) Merge(ctx context.Context, key string, fields docstore.Fields) error {
	if f.failMerge > 0 {
		f.failMerge--
		return errStoreDown
	}
	return f.Store.Merge(ctx, key, fields)
}

func testMatch(n int) MatchInfo {
	return MatchInfo{
		MatchNumber:  n,
		Pairing:      models.Pairing{TeamAID: teamX, TeamBID: teamY, StandbyID: teamZ},
		TeamALabel:   "Amakhosi",
		TeamBLabel:   "Bafana",
		StandbyLabel: "Chiefs",
		MatchSeconds: 600,
	}
}

func goalEvent(id string, team models.TeamID, at int) models.MatchEvent {
	return models.MatchEvent{
		ID:          id,
		Type:        models.EventTypeGoal,
		TeamID:      team,
		Scorer:      "Sipho",
		TimeSeconds: at,
	}
}

func readSnapshot(t *testing.T, store docstore.Store, key string) *models.LiveMatchSnapshot {
	t.Helper()
	doc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	snap, err := SnapshotFromDocument(doc)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func newTestSync(store docstore.Store) (*Synchronizer, *clockwork.FakeClock) {
	fc := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.TickSampleInterval = 15 * time.Second
	cfg.NearExpirySeconds = 10
	return NewSynchronizer(store, fc, cfg), fc
}

func TestStartNewMatch_HardResetClearsPriorState(t *testing.T) {
	store := memory.NewStore()
	s, _ := newTestSync(store)
	ctx := context.Background()

	// Finished prior match with events and a summary.
	if err := s.StartNewMatch(ctx, testMatch(4)); err != nil {
		t.Fatal(err)
	}
	s.AppendEvent(ctx, goalEvent("e1", teamX, 30), 400)
	s.AppendEvent(ctx, goalEvent("e2", teamY, 200), 120)
	s.Finalize(ctx, 1, 1)

	prior := readSnapshot(t, store, s.config.Key)
	if !prior.IsFinished || len(prior.Events) != 2 || prior.FinalSummary == nil {
		t.Fatalf("fixture not dirty enough: %+v", prior)
	}

	if err := s.StartNewMatch(ctx, testMatch(5)); err != nil {
		t.Fatal(err)
	}

	snap := readSnapshot(t, store, s.config.Key)
	if snap.MatchNumber != 5 {
		t.Errorf("match_number = %d, want 5", snap.MatchNumber)
	}
	if len(snap.Events) != 0 {
		t.Errorf("events = %d, want empty after reset", len(snap.Events))
	}
	if snap.IsFinished {
		t.Error("is_finished survived the reset")
	}
	if snap.FinalSummary != nil {
		t.Error("final_summary survived the reset")
	}
	if snap.SecondsLeft == nil || *snap.SecondsLeft != 600 {
		t.Errorf("seconds_left = %v, want full duration 600", snap.SecondsLeft)
	}
	if snap.FinishedAt != nil {
		t.Error("finished_at survived the reset")
	}
}

func TestAppendEvent_MirrorsEventAndSummary(t *testing.T) {
	store := memory.NewStore()
	s, _ := newTestSync(store)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	s.AppendEvent(ctx, goalEvent("e1", teamX, 30), 570)

	snap := readSnapshot(t, store, s.config.Key)
	if len(snap.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(snap.Events))
	}
	if snap.Events[0].ID != "e1" || snap.Events[0].TeamID != teamX {
		t.Fatalf("unexpected event: %+v", snap.Events[0])
	}
	if snap.GoalsFor(teamX) != 1 || snap.GoalsFor(teamY) != 0 {
		t.Fatalf("derived score = %d-%d, want 1-0", snap.GoalsFor(teamX), snap.GoalsFor(teamY))
	}
	if snap.SecondsLeft == nil || *snap.SecondsLeft != 570 {
		t.Errorf("seconds_left = %v, want 570", snap.SecondsLeft)
	}
}

func TestAppendEvent_SurvivesMissingDocument(t *testing.T) {
	flaky := &flakyStore{Store: memory.NewStore(), failPut: 1}
	s, _ := newTestSync(flaky)
	ctx := context.Background()

	// The reset write is lost, so the document does not exist when the
	// first event lands.
	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := flaky.Get(ctx, s.config.Key); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("fixture: document should be missing, got %v", err)
	}

	s.AppendEvent(ctx, goalEvent("e1", teamX, 30), 570)

	snap := readSnapshot(t, flaky, s.config.Key)
	if len(snap.Events) != 1 || snap.Events[0].ID != "e1" {
		t.Fatalf("events = %+v, want exactly the pending event", snap.Events)
	}
	if snap.TeamAID != teamX || snap.TeamALabel != "Amakhosi" {
		t.Fatalf("summary fields missing from fallback create: %+v", snap)
	}
}

func TestOverwriteEvents_UndoYieldsZeroZero(t *testing.T) {
	store := memory.NewStore()
	s, _ := newTestSync(store)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	s.AppendEvent(ctx, goalEvent("e1", teamX, 30), 570)

	snap := readSnapshot(t, store, s.config.Key)
	if snap.GoalsFor(teamX) != 1 {
		t.Fatalf("derived score before undo = %d, want 1", snap.GoalsFor(teamX))
	}

	s.OverwriteEvents(ctx, nil, 560)

	snap = readSnapshot(t, store, s.config.Key)
	if len(snap.Events) != 0 {
		t.Fatalf("events = %d, want 0 after undo", len(snap.Events))
	}
	if snap.GoalsFor(teamX) != 0 || snap.GoalsFor(teamY) != 0 {
		t.Fatalf("derived score after undo = %d-%d, want 0-0",
			snap.GoalsFor(teamX), snap.GoalsFor(teamY))
	}
}

func TestPushClock_Throttled(t *testing.T) {
	store := memory.NewStore()
	s, fc := newTestSync(store)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}

	s.PushClock(ctx, 500)
	snap := readSnapshot(t, store, s.config.Key)
	if *snap.SecondsLeft != 500 {
		t.Fatalf("first push not mirrored, seconds_left = %d", *snap.SecondsLeft)
	}

	// Within the sampling interval and far from expiry: suppressed.
	fc.Advance(5 * time.Second)
	s.PushClock(ctx, 495)
	snap = readSnapshot(t, store, s.config.Key)
	if *snap.SecondsLeft != 500 {
		t.Fatalf("throttled push leaked, seconds_left = %d", *snap.SecondsLeft)
	}

	// Past the sampling interval: mirrored.
	fc.Advance(15 * time.Second)
	s.PushClock(ctx, 480)
	snap = readSnapshot(t, store, s.config.Key)
	if *snap.SecondsLeft != 480 {
		t.Fatalf("sampled push not mirrored, seconds_left = %d", *snap.SecondsLeft)
	}

	// Near expiry every reading goes out regardless of spacing.
	fc.Advance(time.Second)
	s.PushClock(ctx, 9)
	snap = readSnapshot(t, store, s.config.Key)
	if *snap.SecondsLeft != 9 {
		t.Fatalf("near-expiry push not mirrored, seconds_left = %d", *snap.SecondsLeft)
	}
}

func TestFinalize_FreezesMatch(t *testing.T) {
	store := memory.NewStore()
	s, _ := newTestSync(store)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(7)); err != nil {
		t.Fatal(err)
	}
	s.AppendEvent(ctx, goalEvent("e1", teamX, 30), 570)
	s.Finalize(ctx, 1, 0)

	snap := readSnapshot(t, store, s.config.Key)
	if !snap.IsFinished {
		t.Fatal("is_finished not set")
	}
	if snap.FinalSummary == nil || snap.FinalSummary.GoalsA != 1 || snap.FinalSummary.GoalsB != 0 {
		t.Fatalf("final summary = %+v, want 1-0", snap.FinalSummary)
	}
	if snap.FinalSummary.MatchNumber != 7 {
		t.Fatalf("final summary match_number = %d, want 7", snap.FinalSummary.MatchNumber)
	}
	if snap.FinishedAt == nil {
		t.Fatal("finished_at not set")
	}

	// Appends and ticks after the final whistle are ignored.
	s.AppendEvent(ctx, goalEvent("e2", teamY, 580), 0)
	s.PushClock(ctx, 0)

	snap = readSnapshot(t, store, s.config.Key)
	if len(snap.Events) != 1 {
		t.Fatalf("events = %d, want frozen at 1", len(snap.Events))
	}
}

func TestStartNewMatch_WriterConflict(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first, _ := newTestSync(store)
	if err := first.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}

	second, _ := newTestSync(store)
	err := second.StartNewMatch(ctx, testMatch(2))
	if !errors.Is(err, ErrWriterConflict) {
		t.Fatalf("err = %v, want ErrWriterConflict", err)
	}

	// An explicit takeover or a finished match releases the lease.
	first.Finalize(ctx, 0, 0)
	if err := second.StartNewMatch(ctx, testMatch(2)); err != nil {
		t.Fatalf("start after finalize: %v", err)
	}
}

func TestStartNewMatch_StaleLeaseIgnored(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first, _ := newTestSync(store)
	if err := first.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}

	second, fc := newTestSync(store)
	fc.Advance(3 * time.Minute)
	if err := second.StartNewMatch(ctx, testMatch(2)); err != nil {
		t.Fatalf("stale lease should not block: %v", err)
	}
}

func TestRetry_FailedWriteRecovers(t *testing.T) {
	flaky := &flakyStore{Store: memory.NewStore(), failMerge: 1}
	s, fc := newTestSync(flaky)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	if s.Health() != HealthConnected {
		t.Fatalf("health = %s, want CONNECTED", s.Health())
	}

	s.PushClock(ctx, 300)
	if s.Health() != HealthDegraded {
		t.Fatalf("health = %s, want DEGRADED after failed write", s.Health())
	}

	fc.Advance(2 * time.Second)
	s.processPending(ctx)

	if s.Health() != HealthConnected {
		t.Fatalf("health = %s, want CONNECTED after recovery", s.Health())
	}
	snap := readSnapshot(t, flaky, s.config.Key)
	if snap.SecondsLeft == nil || *snap.SecondsLeft != 300 {
		t.Fatalf("seconds_left = %v, want retried value 300", snap.SecondsLeft)
	}
}

func TestRetry_SupersededMatchWritesDropped(t *testing.T) {
	flaky := &flakyStore{Store: memory.NewStore(), failMerge: 1}
	s, fc := newTestSync(flaky)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	s.PushClock(ctx, 300) // fails, queued

	// A new match supersedes the queued write.
	if err := s.StartNewMatch(ctx, MatchInfo{
		MatchNumber:  2,
		Pairing:      models.Pairing{TeamAID: teamX, TeamBID: teamZ, StandbyID: teamY},
		TeamALabel:   "Amakhosi",
		TeamBLabel:   "Chiefs",
		StandbyLabel: "Bafana",
		MatchSeconds: 600,
		TakeOver:     true,
	}); err != nil {
		t.Fatal(err)
	}

	fc.Advance(5 * time.Second)
	s.processPending(ctx)

	snap := readSnapshot(t, flaky, s.config.Key)
	if *snap.SecondsLeft != 600 {
		t.Fatalf("stale clock tick resurrected: seconds_left = %d", *snap.SecondsLeft)
	}
	if s.Health() != HealthConnected {
		t.Fatalf("health = %s, want CONNECTED after reset cleared the queue", s.Health())
	}
}
