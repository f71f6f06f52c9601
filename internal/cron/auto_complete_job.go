package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kofiasante/kasuwa-backend/pkg/logger"
)

const autoCompleteBatchSize = 200

type orderCompleter interface {
	AutoCompleteDelivered(ctx context.Context, cutoff time.Time, batchSize int) (int, error)
}

// AutoCompleteJobParams configures the delivered-order completion sweep.
type AutoCompleteJobParams struct {
	Logger             *logger.Logger
	Orders             orderCompleter
	ConfirmationWindow time.Duration
	BatchSize          int
}

// NewAutoCompleteJob constructs the job that completes delivered orders the
// buyer never confirmed, releasing escrow to the seller.
func NewAutoCompleteJob(params AutoCompleteJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.ConfirmationWindow <= 0 {
		return nil, fmt.Errorf("confirmation window must be positive")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = autoCompleteBatchSize
	}
	return &autoCompleteJob{
		logg:      params.Logger,
		orders:    params.Orders,
		window:    params.ConfirmationWindow,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type autoCompleteJob struct {
	logg      *logger.Logger
	orders    orderCompleter
	window    time.Duration
	batchSize int
	now       func() time.Time
}

func (j *autoCompleteJob) Name() string { return "order_auto_complete" }

func (j *autoCompleteJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.window)
	total := 0
	for {
		completed, err := j.orders.AutoCompleteDelivered(ctx, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("auto-complete delivered orders: %w", err)
		}
		total += completed
		if completed < j.batchSize {
			break
		}
	}
	if total > 0 {
		j.logg.Info(j.logg.WithField(ctx, "completed", total), "auto-completed delivered orders")
	}
	return nil
}
