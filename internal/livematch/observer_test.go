package livematch

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore/memory"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

func TestObserver_NoMatchYet(t *testing.T) {
	store := memory.NewStore()
	fc := clockwork.NewFakeClock()

	obs := NewObserver(store, fc, DefaultConfig().Key)
	if err := obs.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := obs.View().State; got != StateNoMatch {
		t.Fatalf("state = %s, want NO_MATCH", got)
	}
}

func TestObserver_FollowsLiveMatch(t *testing.T) {
	store := memory.NewStore()
	s, fc := newTestSync(store)
	ctx := context.Background()

	obs := NewObserver(store, fc, s.config.Key)
	if err := obs.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}

	view := obs.View()
	if view.State != StateLive {
		t.Fatalf("state = %s, want LIVE", view.State)
	}
	if view.GoalsA != 0 || view.GoalsB != 0 {
		t.Fatalf("score = %d-%d, want 0-0 at kickoff", view.GoalsA, view.GoalsB)
	}

	s.AppendEvent(ctx, goalEvent("e1", teamX, 30), 570)

	view = obs.View()
	if view.GoalsA != 1 || view.GoalsB != 0 {
		t.Fatalf("score = %d-%d, want derived 1-0", view.GoalsA, view.GoalsB)
	}
	if len(view.Snapshot.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(view.Snapshot.Events))
	}

	// Undo on the scorekeeper must bring the observer back to 0-0.
	s.OverwriteEvents(ctx, nil, 560)

	view = obs.View()
	if view.GoalsA != 0 || view.GoalsB != 0 {
		t.Fatalf("score after undo = %d-%d, want 0-0", view.GoalsA, view.GoalsB)
	}
	if len(view.Snapshot.Events) != 0 {
		t.Fatalf("events after undo = %d, want 0", len(view.Snapshot.Events))
	}
}

func TestObserver_LocalCountdownBetweenPushes(t *testing.T) {
	store := memory.NewStore()
	s, fc := newTestSync(store)
	ctx := context.Background()

	obs := NewObserver(store, fc, s.config.Key)
	if err := obs.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	s.PushClock(ctx, 500)

	if got := obs.View().SecondsLeft; got != 500 {
		t.Fatalf("seconds left = %d, want seeded 500", got)
	}

	// No push for 7 seconds; the observer counts down locally.
	fc.Advance(7 * time.Second)
	if got := obs.View().SecondsLeft; got != 493 {
		t.Fatalf("seconds left = %d, want locally derived 493", got)
	}
}

func TestObserver_ScoreFallsBackToFinalSummary(t *testing.T) {
	store := memory.NewStore()
	s, fc := newTestSync(store)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	// Truncated history: the event list is gone but the summary survives.
	s.OverwriteEvents(ctx, nil, 0)
	s.Finalize(ctx, 3, 2)

	obs := NewObserver(store, fc, s.config.Key)
	if err := obs.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	view := obs.View()
	if view.GoalsA != 3 || view.GoalsB != 2 {
		t.Fatalf("score = %d-%d, want summary fallback 3-2", view.GoalsA, view.GoalsB)
	}
	if view.SecondsLeft != 0 {
		t.Fatalf("seconds left = %d, want 0 when finished", view.SecondsLeft)
	}
}

func TestObserver_DisconnectIsExplicit(t *testing.T) {
	store := memory.NewStore()
	s, fc := newTestSync(store)
	ctx := context.Background()

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}

	obs := NewObserver(store, fc, s.config.Key)
	if err := obs.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if obs.View().State != StateLive {
		t.Fatal("fixture: expected LIVE before disconnect")
	}

	obs.Disconnect()

	// Never stale data presented as live.
	view := obs.View()
	if view.State != StateConnectionLost {
		t.Fatalf("state = %s, want CONNECTION_LOST", view.State)
	}
	if view.Snapshot != nil {
		t.Fatal("snapshot leaked into disconnected view")
	}
}

func TestObserver_OnUpdateCallback(t *testing.T) {
	store := memory.NewStore()
	s, fc := newTestSync(store)
	ctx := context.Background()

	var views []View
	obs := NewObserver(store, fc, s.config.Key)
	obs.OnUpdate(func(v View) { views = append(views, v) })
	if err := obs.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.StartNewMatch(ctx, testMatch(1)); err != nil {
		t.Fatal(err)
	}
	s.AppendEvent(ctx, goalEvent("e1", teamX, 30), 570)

	if len(views) < 2 {
		t.Fatalf("callback invoked %d times, want at least connect + changes", len(views))
	}
	last := views[len(views)-1]
	if last.State != StateLive || last.GoalsA != 1 {
		t.Fatalf("last view = %+v, want live 1-0", last)
	}
}

func TestCountGoals_IgnoresShibobo(t *testing.T) {
	shibobo := models.MatchEvent{ID: "s1", Type: models.EventTypeShibobo, TeamID: teamX, Scorer: "Thabo", TimeSeconds: 44}
	evs := []models.MatchEvent{
		goalEvent("e1", teamX, 10),
		shibobo,
		goalEvent("e2", teamY, 90),
		goalEvent("e3", teamX, 300),
	}

	if got := models.CountGoals(evs, teamX); got != 2 {
		t.Errorf("goals for X = %d, want 2", got)
	}
	if got := models.CountGoals(evs, teamY); got != 1 {
		t.Errorf("goals for Y = %d, want 1", got)
	}
	if got := models.CountGoals(evs, teamZ); got != 0 {
		t.Errorf("goals for Z = %d, want 0", got)
	}
}
