package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	"github.com/kofiasante/kasuwa-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateWhereStatus(ctx context.Context, orderID uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error)
}
