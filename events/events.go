package events

import (
	"context"
	"errors"
	"time"
)

type Type string

const (
	TypeBracketGenerated    Type = "BRACKET_GENERATED"
	TypeMatchUpdated        Type = "MATCH_UPDATED"
	TypeMatchesReady        Type = "MATCHES_READY"
	TypeSwissRoundGenerated Type = "SWISS_ROUND_GENERATED"
	// TypeBracketSnapshot is sent once to a spectator when it joins a room.
	TypeBracketSnapshot Type = "BRACKET_SNAPSHOT"
)

// Event is a committed bracket change announced to spectators and
// downstream consumers.
type Event struct {
	Type         Type        `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

// Notifier delivers events after the change they describe has committed.
// Delivery is best effort; callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
