// Package validator provides stream name and event validation.
package validator

import (
	"fmt"
	"regexp"

	"github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// StreamNameField is the configuration key reported in validation errors.
const StreamNameField = "firehose.stream_name"

var streamNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateStreamName checks that name is a usable delivery stream identifier:
// non-empty and made only of letters, digits, underscores and hyphens.
func ValidateStreamName(name string) error {
	if name == "" {
		return &errors.ConfigError{
			Field:  StreamNameField,
			Reason: "required field is missing",
			Err:    errors.ErrEmptyStreamName,
		}
	}

	if !streamNamePattern.MatchString(name) {
		return &errors.ConfigError{
			Field:  StreamNameField,
			Reason: fmt.Sprintf("invalid stream name %q: only letters, digits, '_' and '-' are allowed", name),
		}
	}

	return nil
}

// EventValidator validates events before they are encoded.
type EventValidator struct{}

// NewEventValidator creates a new event validator.
func NewEventValidator() *EventValidator {
	return &EventValidator{}
}

// Validate validates an event.
func (v *EventValidator) Validate(e *event.Event) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", errors.ErrInvalidEvent)
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", errors.ErrInvalidEvent)
	}

	if e.Fields == nil {
		return fmt.Errorf("%w: missing fields", errors.ErrInvalidEvent)
	}

	return nil
}
