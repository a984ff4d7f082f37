/*
Package features defines the boundary between the connection runtime and
independently loaded feature modules (chat commands), plus the loader that
wires them in at startup.

A feature only ever sees the Runtime interface: event registration, the
send API, roster/room resolution, and the ledger. Nothing a feature does may
propagate a failure into the supervisor or the dispatcher; the dispatcher
isolates handler panics, and the loader isolates registration panics.
*/
package features

import (
	"context"
	"runtime/debug"
	"sync"

	"howdybot/internal/app/bus"
	"howdybot/internal/app/ledger"
	"howdybot/internal/app/state"
	"howdybot/internal/app/wire"
	"howdybot/internal/pkg/logx"
)

// Ledger is the slice of the ledger store's API exposed to features.
type Ledger interface {
	Upsert(ctx context.Context, userID, handle string) error
	AdjustCurrency(ctx context.Context, userID string, delta int64) (int64, error)
	AddScore(ctx context.Context, userID string, points int64) error
	MergeFeatureData(ctx context.Context, userID, featureKey string, partial map[string]any) error
	Get(ctx context.Context, userID string) (ledger.Record, error)
}

// Runtime is everything a feature module may touch.
type Runtime interface {
	// On registers a handler for a named event ("event:<discriminator>").
	On(event, handlerName string, fn bus.Handler)

	// Send transmits a raw frame; the convenience senders address text and
	// image content to a room (empty target = default room) or directly to
	// a user.
	Send(frame wire.Frame) error
	SendText(target, text string, dm bool) error
	SendImage(target, url, caption string, dm bool) error
	RequestProfile(handle string) error

	// Roster and room resolution over the shared state store.
	ResolveUserByHandle(handle string) (state.User, bool)
	ResolveUserByID(id string) (state.User, bool)
	ResolveRoom(roomID string) (state.Room, bool)
	DefaultRoom() (state.Room, bool)
	Users() []state.User

	// Locks exposes the named lock registry for feature-chosen keys, so a
	// feature can serialize its own critical sections alongside the store's.
	Locks() *state.LockTable

	// OwnID returns the bot's own user id ("" while unknown), so features
	// can ignore the bot's own messages.
	OwnID() string

	// MasterAdmin returns the handle allowed to run privileged commands,
	// or "" when none is configured.
	MasterAdmin() string

	// Ledger returns the durable per-user store.
	Ledger() Ledger
}

// Feature is an independently loaded unit of behavior.
type Feature interface {
	// Name identifies the feature in logs, the dashboard, and its ledger
	// blob key.
	Name() string

	// Register subscribes the feature's handlers. A panic here is isolated
	// by the loader; an error marks the feature failed without affecting
	// the others.
	Register(rt Runtime) error
}

// LoadStatus describes one feature's registration outcome for the dashboard.
type LoadStatus struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Error  string `json:"error,omitempty"`
}

// Loader registers features one at a time, isolating failures so one broken
// feature cannot prevent the rest from loading.
type Loader struct {
	mu       sync.Mutex
	statuses []LoadStatus
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load registers each feature against the runtime in order.
func (l *Loader) Load(rt Runtime, feats ...Feature) {
	for _, feat := range feats {
		status := LoadStatus{Name: feat.Name()}

		if err := registerIsolated(rt, feat); err != nil {
			status.Error = err.Error()
			logx.Error(err, "Feature failed to register; continuing without it.", "feature", feat.Name())
		} else {
			status.Active = true
			logx.Info("Feature registered.", "feature", feat.Name())
		}

		l.mu.Lock()
		l.statuses = append(l.statuses, status)
		l.mu.Unlock()
	}
}

// Statuses returns a snapshot of every loaded feature's outcome.
func (l *Loader) Statuses() []LoadStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LoadStatus, len(l.statuses))
	copy(out, l.statuses)
	return out
}

func registerIsolated(rt Runtime, feat Feature) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Logger().Error().
				Str("feature", feat.Name()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Feature panicked during registration")
			err = &registrationPanic{feature: feat.Name()}
		}
	}()
	return feat.Register(rt)
}

type registrationPanic struct {
	feature string
}

func (p *registrationPanic) Error() string {
	return "feature " + p.feature + " panicked during registration"
}
