// Package queue defines the confirmation event and moves it over RabbitMQ.
package queue

import (
	"context"

	"github.com/iliyamo/league-registration/internal/model"
)

// RegistrationConfirmed is published once per successful submission. It
// carries enough for downstream sinks to notify the team and operators
// without querying the primary database.
type RegistrationConfirmed struct {
	EventID         string            `json:"event_id"`
	TeamNumber      string            `json:"team_number"`
	RegistrationIDs []uint64          `json:"registration_ids"`
	Selections      []model.Selection `json:"selections"`
	Summary         string            `json:"summary"`
	CreatedAt       string            `json:"created_at"` // RFC3339 UTC
	Email           *EmailJob         `json:"email,omitempty"`
}

// EmailJob is present only when the team supplied an address.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// HandlerFunc processes one decoded event.
type HandlerFunc func(ctx context.Context, ev RegistrationConfirmed) error

// Direct hands events straight to a handler in-process. It stands in for
// the broker when the queue is disabled.
type Direct struct {
	Handle HandlerFunc
}

// Enqueue calls the handler synchronously.
func (d Direct) Enqueue(ctx context.Context, ev RegistrationConfirmed) error {
	if d.Handle == nil {
		return nil
	}
	return d.Handle(ctx, ev)
}
