package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	dbtypes "github.com/uncannyvalley/comicshop-backend/pkg/db/types"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
)

// Repository accesses the orders table in its cart role (status pending).
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) pendingQuery(ctx context.Context, identity Identity) *gorm.DB {
	qb := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Where("status = ?", enums.OrderStatusPending)
	if identity.UserID != nil {
		return qb.Where("user_id = ?", *identity.UserID)
	}
	return qb.Where("session_key = ?", *identity.SessionKey)
}

// FindPending returns the open cart for the identity with items preloaded.
func (r *Repository) FindPending(ctx context.Context, identity Identity) (*models.Order, error) {
	var order models.Order
	if err := r.pendingQuery(ctx, identity).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CreatePending inserts a fresh empty cart for the identity. A unique
// violation here means a concurrent request won the race.
func (r *Repository) CreatePending(ctx context.Context, identity Identity) (*models.Order, error) {
	order := &models.Order{
		UserID:     identity.UserID,
		SessionKey: identity.SessionKey,
		Status:     enums.OrderStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// LockPendingByID reloads the cart under FOR UPDATE inside the caller's
// transaction.
func (r *Repository) LockPendingByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ?", enums.OrderStatusPending).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindItem returns the cart line for the product, if present.
func (r *Repository) FindItem(ctx context.Context, orderID, productID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByID returns the cart line by its own id, scoped to the order so a
// line id from another cart reads as absent.
func (r *Repository) FindItemByID(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND id = ?", orderID, itemID).
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts a new cart line.
func (r *Repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItemQuantity persists a quantity change on an existing line.
func (r *Repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).
		Error
}

// DeleteItem removes a cart line.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.OrderItem{}).Error
}

// ListItems returns all lines for the order in insertion order.
func (r *Repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).
		Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateTotal persists the recomputed total for the order.
func (r *Repository) UpdateTotal(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("total", order.Total).
		Error
}

// UpdateShippingAddress persists the shipping address ahead of checkout.
func (r *Repository) UpdateShippingAddress(ctx context.Context, orderID uuid.UUID, address map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("shipping_address", dbtypes.JSONMap(address)).
		Error
}
