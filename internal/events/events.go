package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/muurk/smartlock/internal/lockstate"
)

// Event describes one lock state change.
type Event struct {
	State    lockstate.State
	Previous lockstate.State
	Action   string
	Session  string
	At       time.Time
}

type eventJSON struct {
	State    string    `json:"state"`
	Previous string    `json:"previous"`
	Action   string    `json:"action"`
	Session  string    `json:"session,omitempty"`
	At       time.Time `json:"at"`
}

// MarshalJSON renders states by name.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		State:    e.State.String(),
		Previous: e.Previous.String(),
		Action:   e.Action,
		Session:  e.Session,
		At:       e.At.UTC(),
	})
}

// Publisher delivers lock events.
type Publisher interface {
	PublishState(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher discards events.
type NopPublisher struct{}

// PublishState implements Publisher.
func (NopPublisher) PublishState(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
