package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oksasatya/go-ddd-users-api/pkg/events"
)

// ErrBadEvent marks a message that can never be processed and should be dropped.
var ErrBadEvent = errors.New("bad user event")

// UserEventJob turns queued user lifecycle events into emails.
// Only user.created sends anything; other event types are acknowledged and skipped.
type UserEventJob struct {
	Sender  Sender
	Company string
}

// Handle returns (sent, err). ErrBadEvent means drop the message, any other
// error means it may succeed on redelivery.
func (j *UserEventJob) Handle(ctx context.Context, body []byte) (bool, error) {
	var ev events.UserEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	if ev.Type != events.UserCreated {
		return false, nil
	}
	if ev.Email == "" {
		return false, fmt.Errorf("%w: %s without email", ErrBadEvent, ev.Type)
	}
	subject, text, html, err := Welcome(ev, j.Company)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	if err := j.Sender.Send(ctx, ev.Email, subject, text, html); err != nil {
		return false, err
	}
	return true, nil
}

// Settlement says what to do with a delivery after Handle.
type Settlement int

const (
	Ack Settlement = iota
	Requeue
	// Drop rejects without requeue; a dead-letter policy on the queue catches it.
	Drop
)

// Settle maps a Handle result to a settlement. A failed send is retried once
// through redelivery, then dropped so a permanent failure cannot loop.
func Settle(err error, redelivered bool) Settlement {
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, ErrBadEvent), redelivered:
		return Drop
	default:
		return Requeue
	}
}
