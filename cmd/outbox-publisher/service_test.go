package main

import (
	"context"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (r *fakeRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if limit < len(r.events) {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *fakeRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailed(id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	return "msg-id", r.err
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if len(p.results) == 0 {
		return fakePublishResult{}
	}
	next := p.results[0]
	p.results = p.results[1:]
	return next
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func outboxEvent(eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"order_number":"KM-TEST0001"}`),
		AttemptCount:  attempts,
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.PollIntervalMS = 5
	cfg.Outbox.MaxAttempts = 3

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-test"}),
		DB:         okPinger{},
		PubSub:     okPinger{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			outboxEvent(enums.EventOrderCreated, 0),
			outboxEvent(enums.EventOrderPaid, 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed rows = %v, want only the first event", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("published rows = %v, want only the second event", repo.published)
	}
}

func TestProcessBatchSetsMessageAttributes(t *testing.T) {
	event := outboxEvent(enums.EventOrderShipped, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventOrderShipped) {
		t.Fatalf("event_type attribute = %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_type"] != string(enums.AggregateOrder) {
		t.Fatalf("aggregate_type attribute = %q", msg.Attributes["aggregate_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("aggregate_id attribute = %q", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != string(event.Payload) {
		t.Fatal("payload must pass through untouched")
	}
}

func TestProcessBatchSkipsPoisonEvents(t *testing.T) {
	poisoned := outboxEvent(enums.EventOrderCreated, 3)
	healthy := outboxEvent(enums.EventOrderPaid, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{poisoned, healthy}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1 (poison skipped)", len(pub.messages))
	}
	if len(repo.published) != 1 || repo.published[0] != healthy.ID {
		t.Fatalf("published rows = %v, want only the healthy event", repo.published)
	}
	if len(repo.failed) != 0 {
		t.Fatal("poison events must not be re-marked failed")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "outbox-test"}),
		DB:         okPinger{},
		PubSub:     okPinger{},
		Repository: &fakeRepo{},
		Publisher:  &fakePublisher{},
	})
	if err == nil {
		t.Fatal("expected error without config")
	}
}
