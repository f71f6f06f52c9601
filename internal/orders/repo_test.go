package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/pagination"
)

func TestRepoFindByNumber(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, seedOpts{})

	found, err := f.repo.FindByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = f.repo.FindByNumber(ctx, "KM-MISSING1")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepoListByBuyerPaginates(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()

	for i := 0; i < 3; i++ {
		f.seedOrder(t, seedOpts{buyerID: &buyerID})
		time.Sleep(2 * time.Millisecond)
	}
	other := uuid.New()
	f.seedOrder(t, seedOpts{buyerID: &other})

	page, next, err := f.repo.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)

	rest, next2, err := f.repo.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Empty(t, next2)

	for _, row := range append(page, rest...) {
		require.NotNil(t, row.BuyerID)
		assert.Equal(t, buyerID, *row.BuyerID, "foreign order leaked into buyer list")
	}
}

func TestRepoUpdateWhereStatusGuards(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, seedOpts{status: enums.OrderStatusPending})

	moved, err := f.repo.UpdateWhereStatus(ctx, order.ID, enums.OrderStatusShipped, map[string]any{
		"status": enums.OrderStatusDelivered,
	})
	require.NoError(t, err)
	assert.False(t, moved, "update must not apply when the expected status mismatches")

	moved, err = f.repo.UpdateWhereStatus(ctx, order.ID, enums.OrderStatusPending, map[string]any{
		"status": enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.True(t, moved, "update must apply when the expected status matches")
}
