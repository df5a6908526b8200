package dto

import (
	"testing"
	"time"
)

func TestDurationHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"http timeout", FirehoseConfig{HTTPTimeoutSeconds: 30}.HTTPTimeout(), 30 * time.Second},
		{"zero http timeout", FirehoseConfig{}.HTTPTimeout(), 0},
		{"flush interval", BatchConfig{FlushIntervalMS: 250}.FlushInterval(), 250 * time.Millisecond},
		{"generator interval", GeneratorConfig{IntervalMS: 100}.Interval(), 100 * time.Millisecond},
		{"grace period", ShutdownConfig{GracePeriodSeconds: 10}.GracePeriod(), 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
