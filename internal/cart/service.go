package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uncannyvalley/comicshop-backend/pkg/db"
	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
)

// Identity names the owner of a cart: an authenticated user or an anonymous
// session, never both.
type Identity struct {
	UserID     *uuid.UUID
	SessionKey *string
}

// Validate rejects identities that are empty or doubly bound.
func (i Identity) Validate() error {
	if (i.UserID == nil) == (i.SessionKey == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart identity must be exactly one of user or session")
	}
	if i.SessionKey != nil && *i.SessionKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session key cannot be empty")
	}
	return nil
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// checkoutEngine is the slice of the order lifecycle engine checkout needs.
type checkoutEngine interface {
	Pay(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type productFinder interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service resolves carts and mutates their lines. Stock is deliberately not
// checked here; the pay path owns stock under row locks.
type Service interface {
	Resolve(ctx context.Context, identity Identity, createIfMissing bool) (*models.Order, error)
	AddItem(ctx context.Context, identity Identity, productID uuid.UUID, quantity int) (*models.Order, error)
	RemoveItem(ctx context.Context, identity Identity, itemID uuid.UUID) (*models.Order, error)
	IncreaseItem(ctx context.Context, identity Identity, productID uuid.UUID) (*models.Order, error)
	DecreaseItem(ctx context.Context, identity Identity, productID uuid.UUID) (*models.Order, error)
	Checkout(ctx context.Context, identity Identity, shippingAddress map[string]any) (*models.Order, error)
}

type service struct {
	repo     *Repository
	products productFinder
	tx       txRunner
	engine   checkoutEngine
}

// NewService builds the cart service.
func NewService(repo *Repository, products productFinder, tx txRunner, engine checkoutEngine) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if engine == nil {
		return nil, fmt.Errorf("checkout engine required")
	}
	return &service{repo: repo, products: products, tx: tx, engine: engine}, nil
}

// Resolve finds the identity's open cart, creating it on first access. Two
// requests racing on the create settle on the partial unique index: the
// loser re-fetches the winner's row.
func (s *service) Resolve(ctx context.Context, identity Identity, createIfMissing bool) (*models.Order, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	order, err := s.repo.FindPending(ctx, identity)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if !createIfMissing {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open cart")
	}

	created, err := s.repo.CreatePending(ctx, identity)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindPending(ctx, identity)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "re-fetch cart after create race")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func (s *service) AddItem(ctx context.Context, identity Identity, productID uuid.UUID, quantity int) (*models.Order, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, identity, true, func(tx *gorm.DB, order *models.Order) error {
		repo := s.repo.WithTx(tx)

		product, err := s.products.FindProductByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		item, err := repo.FindItem(ctx, order.ID, productID)
		switch {
		case err == nil:
			return repo.UpdateItemQuantity(ctx, item.ID, item.Quantity+quantity)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return repo.CreateItem(ctx, &models.OrderItem{
				OrderID:   order.ID,
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: product.Price,
			})
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
	})
}

// RemoveItem deletes a whole line. The id is the line's own id, the one the
// cart snapshot reports, not the product id.
func (s *service) RemoveItem(ctx context.Context, identity Identity, itemID uuid.UUID) (*models.Order, error) {
	return s.mutate(ctx, identity, false, func(tx *gorm.DB, order *models.Order) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemByID(ctx, order.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotInCart
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		return repo.DeleteItem(ctx, item.ID)
	})
}

// IncreaseItem bumps the line by one, creating it at quantity 1 when absent.
func (s *service) IncreaseItem(ctx context.Context, identity Identity, productID uuid.UUID) (*models.Order, error) {
	return s.AddItem(ctx, identity, productID, 1)
}

// DecreaseItem lowers the line by one and deletes it when the quantity
// reaches zero.
func (s *service) DecreaseItem(ctx context.Context, identity Identity, productID uuid.UUID) (*models.Order, error) {
	return s.mutate(ctx, identity, false, func(tx *gorm.DB, order *models.Order) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItem(ctx, order.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotInCart
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		if item.Quantity <= 1 {
			return repo.DeleteItem(ctx, item.ID)
		}
		return repo.UpdateItemQuantity(ctx, item.ID, item.Quantity-1)
	})
}

// Checkout stamps the shipping address and hands the cart to the lifecycle
// engine's pay operation.
func (s *service) Checkout(ctx context.Context, identity Identity, shippingAddress map[string]any) (*models.Order, error) {
	order, err := s.Resolve(ctx, identity, false)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, ErrCartEmpty
		}
		return nil, err
	}
	if len(order.Items) == 0 {
		return nil, ErrCartEmpty
	}

	if len(shippingAddress) > 0 {
		if err := s.repo.UpdateShippingAddress(ctx, order.ID, shippingAddress); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shipping address")
		}
	}

	return s.engine.Pay(ctx, order.ID)
}

// mutate wraps a cart line mutation and the mandatory total recalculation in
// one transaction. The cart row is locked so concurrent mutations on the
// same cart serialize.
func (s *service) mutate(ctx context.Context, identity Identity, createIfMissing bool, fn func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	resolved, err := s.Resolve(ctx, identity, createIfMissing)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, ErrItemNotInCart
		}
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockPendingByID(ctx, resolved.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer open")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}

		if err := fn(tx, order); err != nil {
			return err
		}

		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart items")
		}
		order.Items = items
		order.RecalculateTotal()
		if err := repo.UpdateTotal(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.repo.FindPending(ctx, identity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return reloaded, nil
}
