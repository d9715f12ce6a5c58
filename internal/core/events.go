package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEvent reports a malformed NewEvent.
var ErrInvalidEvent = errors.New("invalid event")

// NewEvent describes an empty event that imports can later fill.
type NewEvent struct {
	Name     string `json:"name" validate:"required,max=200"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// Validate checks the event fields.
func (n NewEvent) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	err := validate.Struct(n)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(msgs, "; "))
}

// CreateEvent stores a new event with no rooms. Its date range starts empty
// and is set by the first commit.
func (s *Service) CreateEvent(ctx context.Context, n NewEvent) (Event, error) {
	if err := n.Validate(); err != nil {
		return Event{}, err
	}
	event := Event{
		ID:       s.newID(),
		Name:     strings.TrimSpace(n.Name),
		Timezone: n.Timezone,
		Rooms:    []Room{},
	}
	if err := s.store.SaveEvent(ctx, event); err != nil {
		return Event{}, fmt.Errorf("save event: %w", err)
	}
	event.Version++
	s.logger.Info("event created", "event_id", event.ID, "name", event.Name)
	return event, nil
}
