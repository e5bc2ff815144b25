// Package refresh fans page invalidations out to every wiki server over a
// Kafka topic.
package refresh

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTopic carries refresh events.
	DefaultTopic = "wiki.page-refresh"

	// EventTypeRefresh is the only event type so far.
	EventTypeRefresh = "page.refresh"
)

// Event asks every server to drop its cached copy of a page.
type Event struct {
	ID        string    `json:"id"`
	EventType string    `json:"eventType"`
	Path      string    `json:"path"`
	Locale    string    `json:"locale"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a refresh event for path in locale.
func NewEvent(path, locale string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		EventType: EventTypeRefresh,
		Path:      path,
		Locale:    locale,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the event can be applied.
func (e *Event) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("invalid event id: %w", err)
	}
	if e.EventType != EventTypeRefresh {
		return fmt.Errorf("unsupported event type %q", e.EventType)
	}
	if e.Path == "" {
		return errors.New("path is required")
	}
	if e.Locale == "" {
		return errors.New("locale is required")
	}
	return nil
}
