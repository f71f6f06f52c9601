package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kofiasante/kasuwa-backend/pkg/logger"
)

const expiryBatchSize = 200

type orderExpirer interface {
	ExpirePending(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// OrderExpiryJobParams configures the pending-order expiry sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    orderExpirer
	BatchSize int
}

// NewOrderExpiryJob constructs the job that cancels unpaid orders whose
// payment window lapsed and puts their stock back.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = expiryBatchSize
	}
	return &orderExpiryJob{
		logg:      params.Logger,
		orders:    params.Orders,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg      *logger.Logger
	orders    orderExpirer
	batchSize int
	now       func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order_expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	total := 0
	// Drain in batches: a stuck batch should not hold the lock forever.
	for {
		expired, err := j.orders.ExpirePending(ctx, j.now(), j.batchSize)
		if err != nil {
			return fmt.Errorf("expire pending orders: %w", err)
		}
		total += expired
		if expired < j.batchSize {
			break
		}
	}
	if total > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", total), "expired unpaid orders")
	}
	return nil
}
