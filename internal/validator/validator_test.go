package validator

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

func TestValidateStreamName(t *testing.T) {
	tests := []struct {
		name    string
		stream  string
		wantErr bool
	}{
		{name: "letters", stream: "logs", wantErr: false},
		{name: "mixed", stream: "My_Stream-01", wantErr: false},
		{name: "digits only", stream: "12345", wantErr: false},
		{name: "empty", stream: "", wantErr: true},
		{name: "space", stream: "my stream", wantErr: true},
		{name: "dot", stream: "my.stream", wantErr: true},
		{name: "slash", stream: "a/b", wantErr: true},
		{name: "trailing newline", stream: "logs\n", wantErr: true},
		{name: "unicode", stream: "lögs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStreamName(tt.stream)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStreamName(%q) error = %v, wantErr %v", tt.stream, err, tt.wantErr)
			}
			if err == nil {
				return
			}

			var cfgErr *errors.ConfigError
			if !stderrors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != StreamNameField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, StreamNameField)
			}
			if !errors.IsFatal(err) {
				t.Error("expected validation failure to be fatal")
			}
		})
	}
}

func TestValidateStreamName_Empty(t *testing.T) {
	err := ValidateStreamName("")
	if !stderrors.Is(err, errors.ErrEmptyStreamName) {
		t.Errorf("expected ErrEmptyStreamName, got %v", err)
	}
}

func TestEventValidator_Validate(t *testing.T) {
	validator := NewEventValidator()

	tests := []struct {
		name    string
		event   *event.Event
		wantErr bool
	}{
		{name: "message event", event: event.NewMessage("hello"), wantErr: false},
		{name: "empty fields", event: event.New(nil), wantErr: false},
		{name: "nil event", event: nil, wantErr: true},
		{name: "zero timestamp", event: &event.Event{Fields: map[string]any{}}, wantErr: true},
		{name: "nil fields", event: &event.Event{Timestamp: time.Now()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !stderrors.Is(err, errors.ErrInvalidEvent) {
				t.Errorf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}
