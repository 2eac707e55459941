package livematch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

// ViewState is what a spectator device shows. The three states are always
// distinguished so a connection problem is never presented as a 0-0 match.
type ViewState string

const (
	StateNoMatch        ViewState = "NO_MATCH"
	StateLive           ViewState = "LIVE"
	StateConnectionLost ViewState = "CONNECTION_LOST"
)

// View is one derived rendering of the shared document. Scores are always
// recomputed from the event list, never read from a stored counter; the final
// summary is only consulted when the event list is empty.
type View struct {
	State       ViewState                 `json:"state"`
	Snapshot    *models.LiveMatchSnapshot `json:"snapshot,omitempty"`
	GoalsA      int                       `json:"goals_a"`
	GoalsB      int                       `json:"goals_b"`
	SecondsLeft int                       `json:"seconds_left"`
}

// Observer is a read-only subscriber to the live match document. It keeps a
// local countdown seeded from the last pushed remaining-seconds value so the
// clock stays smooth between pushes.
type Observer struct {
	store docstore.Store
	clock clockwork.Clock
	key   string

	mu         sync.RWMutex
	latest     *models.LiveMatchSnapshot
	receivedAt time.Time
	connected  bool
	unsub      docstore.Unsubscribe
	onUpdate   func(View)
}

// NewObserver creates an observer for the given document key.
func NewObserver(store docstore.Store, clock clockwork.Clock, key string) *Observer {
	return &Observer{
		store: store,
		clock: clock,
		key:   key,
	}
}

// OnUpdate registers a callback invoked with a fresh view after every change.
// Must be called before Connect.
func (o *Observer) OnUpdate(fn func(View)) {
	o.mu.Lock()
	o.onUpdate = fn
	o.mu.Unlock()
}

// Connect establishes the subscription and loads the current document. A
// missing document is not an error: the view reports NO_MATCH until the first
// reset lands.
func (o *Observer) Connect(ctx context.Context) error {
	unsub, err := o.store.Subscribe(ctx, o.key, o.handleChange)
	if err != nil {
		o.mu.Lock()
		o.connected = false
		o.mu.Unlock()
		return fmt.Errorf("subscribe to live match: %w", err)
	}

	doc, err := o.store.Get(ctx, o.key)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		o.mu.Lock()
		o.connected = true
		o.unsub = unsub
		o.latest = nil
		o.mu.Unlock()
	case err != nil:
		unsub()
		o.mu.Lock()
		o.connected = false
		o.mu.Unlock()
		return fmt.Errorf("load live match: %w", err)
	default:
		snap, decodeErr := SnapshotFromDocument(doc)
		o.mu.Lock()
		o.connected = true
		o.unsub = unsub
		if decodeErr == nil {
			o.latest = snap
			o.receivedAt = o.clock.Now()
		}
		o.mu.Unlock()
		if decodeErr != nil {
			log.Error().Err(decodeErr).Str("key", o.key).Msg("ignoring malformed live document")
		}
	}

	log.Info().Str("key", o.key).Msg("observer connected")
	o.emit()
	return nil
}

// Disconnect tears down the subscription. The view reports CONNECTION_LOST
// afterwards rather than presenting the last snapshot as live.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	unsub := o.unsub
	o.unsub = nil
	o.connected = false
	o.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	o.emit()
}

// View derives the current spectator rendering.
func (o *Observer) View() View {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.viewLocked()
}

func (o *Observer) viewLocked() View {
	if !o.connected {
		return View{State: StateConnectionLost}
	}
	if o.latest == nil {
		return View{State: StateNoMatch}
	}

	snap := o.latest
	goalsA := snap.GoalsFor(snap.TeamAID)
	goalsB := snap.GoalsFor(snap.TeamBID)
	if len(snap.Events) == 0 && snap.FinalSummary != nil {
		// Truncated history: trust the frozen summary.
		goalsA = snap.FinalSummary.GoalsA
		goalsB = snap.FinalSummary.GoalsB
	}

	return View{
		State:       StateLive,
		Snapshot:    snap,
		GoalsA:      goalsA,
		GoalsB:      goalsB,
		SecondsLeft: o.secondsLeftLocked(snap),
	}
}

// secondsLeftLocked runs the local countdown from the last pushed value.
func (o *Observer) secondsLeftLocked(snap *models.LiveMatchSnapshot) int {
	if snap.IsFinished {
		return 0
	}
	if snap.SecondsLeft == nil {
		return snap.MatchSeconds
	}

	elapsed := int(o.clock.Now().Sub(o.receivedAt).Seconds())
	left := *snap.SecondsLeft - elapsed
	if left < 0 {
		return 0
	}
	return left
}

func (o *Observer) handleChange(doc docstore.Document) {
	snap, err := SnapshotFromDocument(doc)
	if err != nil {
		log.Error().Err(err).Str("key", o.key).Msg("ignoring malformed live document")
		return
	}

	o.mu.Lock()
	o.latest = snap
	o.receivedAt = o.clock.Now()
	o.mu.Unlock()

	o.emit()
}

func (o *Observer) emit() {
	o.mu.RLock()
	fn := o.onUpdate
	view := View{State: StateConnectionLost}
	if fn != nil {
		view = o.viewLocked()
	}
	o.mu.RUnlock()

	if fn != nil {
		fn(view)
	}
}
