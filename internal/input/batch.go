// Package input implements the non-Kafka event sources: newline-delimited
// text from a file or stdin, and a synthetic event generator.
package input

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
	"github.com/jittakal/kafeventfirehose/pkg/source"
)

// Batch defaults.
const (
	DefaultMaxEvents     = 500
	DefaultFlushInterval = time.Second
)

// BatchConfig bounds the micro-batches handed to a sink.
type BatchConfig struct {
	MaxEvents     int
	FlushInterval time.Duration
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.MaxEvents <= 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	return c
}

// collect reads events from in and hands them to sink in batches until in is
// closed or ctx is done. Only fatal sink errors are returned.
func collect(ctx context.Context, in <-chan *event.Event, sink source.Sink, cfg BatchConfig, logger *zap.Logger) error {
	ticker := time.NewTicker(cfg.FlushInterval)
	defer ticker.Stop()

	pending := make([]*event.Event, 0, cfg.MaxEvents)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := sink.ReceiveMany(ctx, pending)
		if apperrors.IsFatal(err) {
			return err
		}
		if err != nil {
			logger.Error("output rejected batch", zap.Error(err), zap.Int("events", len(pending)))
		}
		pending = pending[:0]
		return nil
	}

	for {
		select {
		case e, ok := <-in:
			if !ok {
				return flush()
			}
			pending = append(pending, e)
			if len(pending) >= cfg.MaxEvents {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
