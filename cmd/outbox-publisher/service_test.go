package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/outbox/payloads"
	"github.com/winimarket/winimarket-backend/pkg/outbox/registry"
)

type stubRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (s *stubRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubRepo) MarkPublished(id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubRepo) MarkFailed(id uuid.UUID, err error) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubRepo) MarkTerminal(id uuid.UUID, err error, maxAttempts int) error {
	s.terminal = append(s.terminal, id)
	return nil
}

type stubPublisher struct {
	err      error
	messages []*gcppubsub.Message
}

type stubResult struct {
	err error
}

func (r stubResult) Get(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

func (p *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return stubResult{err: p.err}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func testRegistry(t *testing.T) *registry.EventRegistry {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{
		OrdersTopic:       "orders-events",
		NotificationTopic: "notification-events",
	})
	if err != nil {
		t.Fatalf("registry setup: %v", err)
	}
	return reg
}

func newPublisherService(t *testing.T, repo *stubRepo, pub *stubPublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config: &config.Config{
			Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3},
		},
		Logger:           testLogger(),
		Repository:       repo,
		Registry:         testRegistry(t),
		PublisherFactory: func(topic string) publisher { return pub },
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func orderCreatedRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:    orderID,
		BuyerID:    uuid.New(),
		TotalCents: 2500,
		ItemCount:  1,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope,
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	row := orderCreatedRow(t, 0)
	repo := &stubRepo{events: []models.OutboxEvent{row}}
	pub := &stubPublisher{}
	svc := newPublisherService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report work")
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != row.AggregateID.String() {
		t.Fatal("aggregate_id attribute mismatch")
	}
	if len(repo.published) != 1 || repo.published[0] != row.ID {
		t.Fatalf("expected row marked published got %v", repo.published)
	}
}

func TestProcessBatchEmptyQueueIdles(t *testing.T) {
	svc := newPublisherService(t, &stubRepo{}, &stubPublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if processed {
		t.Fatal("expected idle batch")
	}
}

func TestProcessBatchTransientFailureMarksFailed(t *testing.T) {
	row := orderCreatedRow(t, 0)
	repo := &stubRepo{events: []models.OutboxEvent{row}}
	pub := &stubPublisher{err: fmt.Errorf("deadline exceeded")}
	svc := newPublisherService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(repo.failed) != 1 || repo.failed[0] != row.ID {
		t.Fatalf("expected row marked failed got %v", repo.failed)
	}
	if len(repo.published) != 0 {
		t.Fatal("failed row must not be marked published")
	}
}

func TestProcessBatchExhaustedAttemptsParkRow(t *testing.T) {
	// MaxAttempts is 3, the row already failed twice.
	row := orderCreatedRow(t, 2)
	repo := &stubRepo{events: []models.OutboxEvent{row}}
	pub := &stubPublisher{err: fmt.Errorf("deadline exceeded")}
	svc := newPublisherService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != row.ID {
		t.Fatalf("expected row parked got %v", repo.terminal)
	}
	if len(repo.failed) != 0 {
		t.Fatal("parked row must not also be marked failed")
	}
}

func TestProcessBatchUnknownEventTypeIsTerminal(t *testing.T) {
	row := orderCreatedRow(t, 0)
	row.EventType = "order.renamed"
	repo := &stubRepo{events: []models.OutboxEvent{row}}
	pub := &stubPublisher{}
	svc := newPublisherService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected undecodable row parked got %v", repo.terminal)
	}
	if len(pub.messages) != 0 {
		t.Fatal("undecodable row must not publish")
	}
}
