package kafka

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]*event.Event
	err     error
}

func (s *fakeSink) Receive(ctx context.Context, e *event.Event) error {
	return s.ReceiveMany(ctx, []*event.Event{e})
}

func (s *fakeSink) ReceiveMany(_ context.Context, events []*event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]*event.Event, len(events))
	copy(cp, events)
	s.batches = append(s.batches, cp)
	return s.err
}

func (s *fakeSink) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, len(s.batches))
	for i, b := range s.batches {
		sizes[i] = len(b)
	}
	return sizes
}

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return map[string][]int32{"logs": {0}} }
func (s *fakeSession) MemberID() string { return "member-1" }
func (s *fakeSession) GenerationID() int32 { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string { return "logs" }
func (c *fakeClaim) Partition() int32 { return 0 }
func (c *fakeClaim) InitialOffset() int64 { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newClaim(n int, closeAfter bool) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, n)
	for i := 0; i < n; i++ {
		ch <- &sarama.ConsumerMessage{
			Topic:     "logs",
			Partition: 0,
			Offset:    int64(i),
			Value:     []byte(`{"message":"hello"}`),
		}
	}
	if closeAfter {
		close(ch)
	}
	return &fakeClaim{messages: ch}
}

func newHandler(sink *fakeSink, maxEvents int, interval time.Duration) *consumerGroupHandler {
	c := NewSaramaConsumerWithGroup(nil, ConsumerConfig{
		GroupID:        "test-group",
		Topics:         []string{"logs"},
		MaxBatchEvents: maxEvents,
		FlushInterval:  interval,
	}, zap.NewNop(), nil)
	return &consumerGroupHandler{consumer: c, sink: sink}
}

func TestConsumerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ConsumerConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: ConsumerConfig{
				BootstrapServers: []string{"localhost:9092"},
				GroupID:          "test-group",
				Topics:           []string{"logs"},
			},
			wantErr: false,
		},
		{
			name:    "empty bootstrap servers",
			config:  ConsumerConfig{GroupID: "test-group", Topics: []string{"logs"}},
			wantErr: true,
		},
		{
			name:    "empty group ID",
			config:  ConsumerConfig{BootstrapServers: []string{"localhost:9092"}, Topics: []string{"logs"}},
			wantErr: true,
		},
		{
			name:    "no topics",
			config:  ConsumerConfig{BootstrapServers: []string{"localhost:9092"}, GroupID: "test-group"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsFatal(err) {
				t.Error("expected a fatal configuration error")
			}
		})
	}
}

func TestOffsetInitial(t *testing.T) {
	tests := []struct {
		name   string
		offset string
		want   int64
	}{
		{"earliest", "earliest", sarama.OffsetOldest},
		{"latest", "latest", sarama.OffsetNewest},
		{"empty defaults to latest", "", sarama.OffsetNewest},
		{"unknown defaults to latest", "bogus", sarama.OffsetNewest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := offsetInitial(tt.offset); got != tt.want {
				t.Errorf("offsetInitial(%q) = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestNewSaramaConfig(t *testing.T) {
	cfg, err := newSaramaConfig(ConsumerConfig{
		AutoOffsetReset:     "earliest",
		SessionTimeoutMS:    10000,
		HeartbeatIntervalMS: 3000,
	})
	if err != nil {
		t.Fatalf("newSaramaConfig() error = %v", err)
	}
	if cfg.Consumer.Offsets.Initial != sarama.OffsetOldest {
		t.Errorf("Offsets.Initial = %v", cfg.Consumer.Offsets.Initial)
	}
	if cfg.Consumer.Group.Session.Timeout != 10*time.Second {
		t.Errorf("Session.Timeout = %v", cfg.Consumer.Group.Session.Timeout)
	}
	if cfg.Consumer.Group.Heartbeat.Interval != 3*time.Second {
		t.Errorf("Heartbeat.Interval = %v", cfg.Consumer.Group.Heartbeat.Interval)
	}
	if cfg.Consumer.MaxProcessingTime != 5*time.Minute {
		t.Errorf("MaxProcessingTime = %v", cfg.Consumer.MaxProcessingTime)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sarama config invalid: %v", err)
	}
}

func TestToEvent(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("json payload", func(t *testing.T) {
		e := toEvent(&sarama.ConsumerMessage{
			Topic: "logs", Partition: 3, Offset: 7, Timestamp: ts,
			Key:   []byte("k"),
			Value: []byte(`{"message":"hi","level":"info"}`),
		})
		if e.Message() != "hi" {
			t.Errorf("Message() = %q", e.Message())
		}
		if !e.Timestamp.Equal(ts) {
			t.Errorf("Timestamp = %v, want message timestamp", e.Timestamp)
		}
		if e.Metadata.Topic != "logs" || e.Metadata.Partition != 3 || e.Metadata.Offset != 7 {
			t.Errorf("Metadata = %+v", e.Metadata)
		}
	})

	t.Run("payload timestamp wins", func(t *testing.T) {
		e := toEvent(&sarama.ConsumerMessage{
			Timestamp: ts,
			Value:     []byte(`{"message":"hi","@timestamp":"2020-01-01T00:00:00Z"}`),
		})
		if e.Timestamp.Year() != 2020 {
			t.Errorf("Timestamp = %v, want payload timestamp", e.Timestamp)
		}
	})

	t.Run("plain text payload", func(t *testing.T) {
		e := toEvent(&sarama.ConsumerMessage{Value: []byte("not json")})
		if e.Message() != "not json" {
			t.Errorf("Message() = %q", e.Message())
		}
	})
}

func TestConsumeClaim_BatchesBySize(t *testing.T) {
	sink := &fakeSink{}
	h := newHandler(sink, 2, time.Hour)
	session := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(session, newClaim(5, true)); err != nil {
		t.Fatalf("ConsumeClaim() error = %v", err)
	}

	if got := sink.batchSizes(); !slices.Equal(got, []int{2, 2, 1}) {
		t.Errorf("batch sizes = %v, want [2 2 1]", got)
	}
	if got := session.markedOffsets(); !slices.Equal(got, []int64{1, 3, 4}) {
		t.Errorf("marked offsets = %v, want [1 3 4]", got)
	}
}

func TestConsumeClaim_FlushesOnInterval(t *testing.T) {
	sink := &fakeSink{}
	h := newHandler(sink, 100, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}

	done := make(chan error, 1)
	go func() {
		done <- h.ConsumeClaim(session, newClaim(3, false))
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.batchSizes()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("ConsumeClaim() error = %v", err)
	}
	if got := sink.batchSizes(); !slices.Equal(got, []int{3}) {
		t.Errorf("batch sizes = %v, want [3]", got)
	}
	if got := session.markedOffsets(); !slices.Equal(got, []int64{2}) {
		t.Errorf("marked offsets = %v, want [2]", got)
	}
}

func TestConsumeClaim_FatalStops(t *testing.T) {
	fatal := &apperrors.ConfigError{Field: "firehose.stream_name", Reason: "not found", Err: apperrors.ErrStreamNotFound}
	sink := &fakeSink{err: fatal}
	h := newHandler(sink, 2, time.Hour)
	session := &fakeSession{ctx: context.Background()}

	err := h.ConsumeClaim(session, newClaim(5, true))
	if !errors.Is(err, apperrors.ErrStreamNotFound) {
		t.Fatalf("ConsumeClaim() error = %v, want stream not found", err)
	}
	if len(session.markedOffsets()) != 0 {
		t.Error("offsets must not be marked after a fatal error")
	}
	if h.fatal() == nil {
		t.Error("expected fatal error to be recorded")
	}
}

func TestConsumeClaim_RecoverableStillMarks(t *testing.T) {
	sink := &fakeSink{err: errors.New("transient")}
	h := newHandler(sink, 10, time.Hour)
	session := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(session, newClaim(3, true)); err != nil {
		t.Fatalf("ConsumeClaim() error = %v", err)
	}
	if got := session.markedOffsets(); !slices.Equal(got, []int64{2}) {
		t.Errorf("marked offsets = %v, want [2]", got)
	}
}

type fakeGroup struct {
	claim  *fakeClaim
	cancel context.CancelFunc
	errs   chan error
	closed bool
}

func (g *fakeGroup) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	session := &fakeSession{ctx: ctx}
	if err := handler.Setup(session); err != nil {
		return err
	}
	err := handler.ConsumeClaim(session, g.claim)
	_ = handler.Cleanup(session)
	if g.cancel != nil {
		g.cancel()
	}
	return err
}

func (g *fakeGroup) Errors() <-chan error { return g.errs }
func (g *fakeGroup) Close() error {
	g.closed = true
	return nil
}

func (g *fakeGroup) Pause(map[string][]int32) {}
func (g *fakeGroup) Resume(map[string][]int32) {}
func (g *fakeGroup) PauseAll() {}
func (g *fakeGroup) ResumeAll() {}

func TestSaramaConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group := &fakeGroup{claim: newClaim(4, true), cancel: cancel, errs: make(chan error)}
	sink := &fakeSink{}
	c := NewSaramaConsumerWithGroup(group, ConsumerConfig{GroupID: "g", Topics: []string{"logs"}}, zap.NewNop(), nil)

	if err := c.Run(ctx, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := sink.batchSizes(); !slices.Equal(got, []int{4}) {
		t.Errorf("batch sizes = %v, want [4]", got)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !group.closed {
		t.Error("expected consumer group to be closed")
	}
	if err := c.Run(ctx, sink); !errors.Is(err, apperrors.ErrConsumerClosed) {
		t.Errorf("Run() after Close error = %v, want ErrConsumerClosed", err)
	}
}

func TestSaramaConsumer_RunFatal(t *testing.T) {
	group := &fakeGroup{claim: newClaim(1, true), errs: make(chan error)}
	sink := &fakeSink{err: &apperrors.ConfigError{Field: "firehose.stream_name", Reason: "not found", Err: apperrors.ErrStreamNotFound}}
	c := NewSaramaConsumerWithGroup(group, ConsumerConfig{GroupID: "g", Topics: []string{"logs"}}, zap.NewNop(), nil)

	err := c.Run(context.Background(), sink)
	if !apperrors.IsFatal(err) {
		t.Fatalf("Run() error = %v, want fatal", err)
	}
}

func TestNewSaramaConsumer_NilLogger(t *testing.T) {
	broker := sarama.NewMockBroker(t, 1)
	defer broker.Close()

	broker.SetHandlerByMap(map[string]sarama.MockResponse{
		"ApiVersionsRequest": sarama.NewMockApiVersionsResponse(t),
		"MetadataRequest": sarama.NewMockMetadataResponse(t).
			SetBroker(broker.Addr(), broker.BrokerID()),
	})

	consumer, err := NewSaramaConsumer(ConsumerConfig{
		BootstrapServers: []string{broker.Addr()},
		GroupID:          "test-group",
		Topics:           []string{"logs"},
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewSaramaConsumer() error = %v", err)
	}
	if err := consumer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
