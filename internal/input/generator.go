package input

import (
	"context"
	"sync"
	"time"

	"github.com/jaswdr/faker"
	"go.uber.org/zap"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
	"github.com/jittakal/kafeventfirehose/pkg/source"
)

// Ensure implementation satisfies interface at compile time.
var _ source.Source = (*GeneratorSource)(nil)

// GeneratorConfig configures a GeneratorSource.
type GeneratorConfig struct {
	// Count is the number of events to emit. Zero runs until cancelled.
	Count    int
	Interval time.Duration
}

// GeneratorSource emits synthetic log events, one Receive call each. It is
// meant for smoke-testing a delivery stream.
type GeneratorSource struct {
	config GeneratorConfig
	faker  faker.Faker
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewGeneratorSource creates a generator.
func NewGeneratorSource(config GeneratorConfig, logger *zap.Logger) *GeneratorSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneratorSource{
		config: config,
		faker:  faker.New(),
		logger: logger.With(zap.String("source", "generator")),
	}
}

// Run emits events until Count is reached or ctx is cancelled.
func (g *GeneratorSource) Run(ctx context.Context, sink source.Sink) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return apperrors.ErrSourceClosed
	}
	g.mu.Unlock()

	var tick <-chan time.Time
	if g.config.Interval > 0 {
		ticker := time.NewTicker(g.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for sent := 0; g.config.Count == 0 || sent < g.config.Count; sent++ {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return nil
			}
		} else if ctx.Err() != nil {
			return nil
		}

		err := sink.Receive(ctx, g.Generate())
		if apperrors.IsFatal(err) {
			return err
		}
		if err != nil {
			g.logger.Error("output rejected event", zap.Error(err))
		}
	}

	g.logger.Info("generator finished", zap.Int("events", g.config.Count))
	return nil
}

// Generate builds one synthetic access-log style event.
func (g *GeneratorSource) Generate() *event.Event {
	e := event.New(map[string]any{
		event.FieldMessage: g.faker.Lorem().Sentence(8),
		"level":            g.randomLevel(),
		"user":             g.faker.Person().Name(),
		"email":            g.faker.Internet().Email(),
		"client_ip":        g.faker.Internet().Ipv4(),
		"request_id":       g.faker.UUID().V4(),
		"status":           g.randomStatus(),
		"latency_ms":       g.faker.IntBetween(1, 2000),
	})
	e.Metadata.Source = "generator"
	return e
}

func (g *GeneratorSource) randomLevel() string {
	levels := []string{"debug", "info", "warn", "error"}
	weights := []int{10, 70, 15, 5}

	roll := g.faker.IntBetween(1, 100)
	cumulative := 0
	for i, weight := range weights {
		cumulative += weight
		if roll <= cumulative {
			return levels[i]
		}
	}
	return levels[1]
}

func (g *GeneratorSource) randomStatus() int {
	statuses := []int{200, 201, 204, 301, 400, 404, 500, 503}
	return statuses[g.faker.IntBetween(0, len(statuses)-1)]
}

// Close stops future runs.
func (g *GeneratorSource) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}
