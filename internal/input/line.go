package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
	"github.com/jittakal/kafeventfirehose/pkg/source"
)

// MaxLineBytes is the longest line the line source accepts.
const MaxLineBytes = 4 * 1024 * 1024

// Ensure implementation satisfies interface at compile time.
var _ source.Source = (*LineSource)(nil)

// LineConfig configures a LineSource.
type LineConfig struct {
	// Path is the file to read. Empty or "-" reads stdin.
	Path string
	// JSON parses each line as a JSON object instead of a plain message.
	JSON  bool
	Batch BatchConfig
}

// LineSource turns each non-empty line of its input into one event.
type LineSource struct {
	reader io.Reader
	closer io.Closer
	config LineConfig
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewLineSource opens the configured file, or stdin.
func NewLineSource(config LineConfig, logger *zap.Logger) (*LineSource, error) {
	if config.Path == "" || config.Path == "-" {
		return NewLineSourceFromReader(os.Stdin, config, logger), nil
	}

	f, err := os.Open(config.Path)
	if err != nil {
		return nil, &apperrors.ConfigError{Field: "input.line.path", Reason: "cannot open input file", Err: err}
	}
	s := NewLineSourceFromReader(f, config, logger)
	s.closer = f
	return s, nil
}

// NewLineSourceFromReader reads lines from r.
func NewLineSourceFromReader(r io.Reader, config LineConfig, logger *zap.Logger) *LineSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.Batch = config.Batch.withDefaults()
	return &LineSource{
		reader: r,
		config: config,
		logger: logger.With(zap.String("source", "line")),
	}
}

// Run reads until end of input or ctx is cancelled.
func (s *LineSource) Run(ctx context.Context, sink source.Sink) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrSourceClosed
	}
	s.mu.Unlock()

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan *event.Event, s.config.Batch.MaxEvents)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

		n := 0
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				continue
			}
			n++
			select {
			case lines <- s.toEvent(text):
			case <-readCtx.Done():
				scanErr <- nil
				return
			}
		}
		s.logger.Info("end of input", zap.Int("lines", n))
		scanErr <- scanner.Err()
	}()

	if err := collect(ctx, lines, sink, s.config.Batch, s.logger); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := <-scanErr; err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func (s *LineSource) toEvent(text string) *event.Event {
	var e *event.Event
	if s.config.JSON {
		e = event.FromJSON([]byte(text))
	} else {
		e = event.NewMessage(text)
	}
	e.Metadata.Source = "line"
	return e
}

// Close closes the input file, if one was opened.
func (s *LineSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
