package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox/payloads"
)

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create outbox table: %v", err)
	}
	return db
}

func TestEmitWritesEnvelope(t *testing.T) {
	db := newOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderCreatedEvent{
				CheckoutID:  uuid.New(),
				OrderID:     orderID,
				OrderNumber: "KM-A1B2C3D4",
				TotalCents:  4000,
			},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "aggregate_id = ?", orderID).Error; err != nil {
		t.Fatalf("load outbox row: %v", err)
	}
	if row.EventType != enums.EventOrderCreated {
		t.Fatalf("unexpected event type %s", row.EventType)
	}
	if row.PublishedAt != nil {
		t.Fatal("new rows must be unpublished")
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.EventID == "" {
		t.Fatal("envelope missing event id")
	}
	if envelope.Version != 1 {
		t.Fatalf("expected version 1, got %d", envelope.Version)
	}

	var data payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.OrderNumber != "KM-A1B2C3D4" {
		t.Fatalf("unexpected order number %q", data.OrderNumber)
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	db := newOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	sentinel := uuid.New()
	_ = db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   sentinel,
			Data:          map[string]string{"k": "v"},
		}); err != nil {
			return err
		}
		return context.Canceled
	})

	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", sentinel).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("emit must roll back with the surrounding transaction")
	}
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	db := newOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	emit := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Data:          payloads.OrderExpiredEvent{OrderID: orderID},
			})
		})
	}
	if err := emit(); err != nil {
		t.Fatalf("first emit: %v", err)
	}
	if err := emit(); err != nil {
		t.Fatalf("second emit: %v", err)
	}

	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}

func TestFetchUnpublishedAndMark(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventEscrowHeld,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"amount": 4000},
		})
	}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 unpublished row, got %d", len(rows))
	}

	if err := repo.MarkPublished(rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	rows, err = repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no unpublished rows, got %d", len(rows))
	}
}
