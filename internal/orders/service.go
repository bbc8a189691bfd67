package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	dbtypes "github.com/uncannyvalley/comicshop-backend/pkg/db/types"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
	"github.com/uncannyvalley/comicshop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DirectLine is one requested product line for a direct purchase.
type DirectLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// Service is the order lifecycle engine. Every transition that touches
// inventory runs inside one transaction with the order row and each product
// row locked, so stock can never go negative and an order is paid at most
// once.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)

	Pay(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Refund(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkShipped(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error)

	CreateDirect(ctx context.Context, userID uuid.UUID, lines []DirectLine, shippingAddress map[string]any) (*models.Order, error)
	RecalculateTotal(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService builds the lifecycle engine.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, next, nil
}

// Pay settles a pending order: stock is deducted and sales counters bumped
// per line, in line insertion order, each product under FOR UPDATE. Any
// status other than pending makes the call a no-op returning the order
// unchanged, so repeated pays are harmless. Any shortage aborts the whole
// transaction, leaving stock and the order untouched.
func (s *service) Pay(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}

		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		if len(items) == 0 {
			return ErrEmptyOrder
		}

		total := decimal.Zero
		for _, item := range items {
			product, err := repo.LockProductByID(ctx, item.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
			}
			if product.Stock < item.Quantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("Not enough stock for %s", product.Title))
			}
			product.Stock -= item.Quantity
			product.SalesCount += item.Quantity
			if err := repo.SaveProduct(ctx, product); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
			}
			total = total.Add(item.Subtotal())
		}

		now := time.Now().UTC()
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		order.Total = total
		if err := repo.SaveOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// Cancel moves a paid or shipped order to cancelled and returns its stock to
// the shelf. Cancelling an already-cancelled order is a no-op.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, enums.OrderStatusCancelled,
		[]enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusShipped}, true)
}

// Refund moves a paid order to refunded and restores its stock. Refunding an
// already-refunded order is a no-op.
func (s *service) Refund(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, enums.OrderStatusRefunded,
		[]enums.OrderStatus{enums.OrderStatusPaid}, true)
}

// MarkShipped moves a paid order to shipped.
func (s *service) MarkShipped(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, enums.OrderStatusShipped,
		[]enums.OrderStatus{enums.OrderStatusPaid}, false)
}

// Complete moves a paid or shipped order to completed.
func (s *service) Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, enums.OrderStatusCompleted,
		[]enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusShipped}, false)
}

// transition applies one status change under the order row lock. Any status
// outside `from` makes the call a no-op: the order is returned unchanged, no
// error, nothing written. When restock is set the order's lines are returned
// to inventory.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, from []enums.OrderStatus, restock bool) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		allowed := false
		for _, status := range from {
			if order.Status == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil
		}

		if restock {
			items, err := repo.ListItems(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
			}
			for _, item := range items {
				product, err := repo.LockProductByID(ctx, item.ProductID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						continue
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
				}
				product.Stock += item.Quantity
				product.SalesCount -= item.Quantity
				if err := repo.SaveProduct(ctx, product); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
				}
			}
		}

		order.Status = to
		if err := repo.SaveOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// CreateDirect builds and settles an order for an authenticated user in one
// step, bypassing the cart. Prices are snapshotted from the locked product
// rows, so a shortage on any line leaves no partial order behind.
func (s *service) CreateDirect(ctx context.Context, userID uuid.UUID, lines []DirectLine, shippingAddress map[string]any) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is required")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		if seen[line.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order")
		}
		seen[line.ProductID] = true
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		now := time.Now().UTC()
		order := &models.Order{
			UserID: &userID,
			Status: enums.OrderStatusPaid,
			PaidAt: &now,
		}
		if len(shippingAddress) > 0 {
			order.ShippingAddress = dbtypes.JSONMap(shippingAddress)
		}

		total := decimal.Zero
		for _, line := range lines {
			product, err := repo.LockProductByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
			}
			if product.Stock < line.Quantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("Not enough stock for %s", product.Title))
			}
			product.Stock -= line.Quantity
			product.SalesCount += line.Quantity
			if err := repo.SaveProduct(ctx, product); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
			}

			item := models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
			}
			order.Items = append(order.Items, item)
			total = total.Add(item.Subtotal())
		}

		order.Total = total
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// RecalculateTotal recomputes the order total from its lines under the row
// lock. Totals are always recomputed from scratch, never adjusted in place.
func (s *service) RecalculateTotal(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		order.Items = items
		order.RecalculateTotal()
		if err := repo.SaveOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func lockOrder(ctx context.Context, repo *Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.LockByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}
