package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/uncannyvalley/comicshop-backend/api/middleware"
	"github.com/uncannyvalley/comicshop-backend/api/responses"
	"github.com/uncannyvalley/comicshop-backend/api/validators"
	cartsvc "github.com/uncannyvalley/comicshop-backend/internal/cart"
	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
	"github.com/uncannyvalley/comicshop-backend/pkg/logger"
)

// GetCart returns the caller's open cart. A read never creates one: callers
// without a cart get a flat "Cart is empty." answer and no row is written.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := cartIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Resolve(r.Context(), identity, false)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				responses.WriteDetail(w, http.StatusOK, "Cart is empty.")
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// AddCartItem adds a product line or bumps its quantity.
func AddCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := cartIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := payload.Quantity
		if quantity == 0 {
			quantity = 1
		}

		order, err := svc.AddItem(r.Context(), identity, payload.ProductID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// removeItemRequest names a cart line by its own id, the one the cart
// snapshot reports on items[].id.
type removeItemRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// RemoveCartItem deletes a whole line from the cart.
func RemoveCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := cartIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload removeItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RemoveItem(r.Context(), identity, payload.ItemID)
		if err != nil {
			writeCartMutationError(w, r, logg, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// IncreaseCartItem bumps a line's quantity by one.
func IncreaseCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineMutation(logg, svc.IncreaseItem)
}

// DecreaseCartItem lowers a line's quantity by one, removing it at zero.
func DecreaseCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineMutation(logg, svc.DecreaseItem)
}

type checkoutRequest struct {
	ShippingAddress map[string]any `json:"shipping_address,omitempty"`
}

// Checkout converts the open cart into a paid order. Failures surface in the
// storefront's flat {"detail": ...} shape.
func Checkout(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := cartIdentity(r)
		if err != nil {
			responses.WriteDetailError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteDetailError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Checkout(r.Context(), identity, payload.ShippingAddress)
		if err != nil {
			responses.WriteDetailError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// cartLineRequest identifies a line for the quantity steppers, which key by
// the product.
type cartLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

func cartLineMutation(logg *logger.Logger, op func(ctx context.Context, identity cartsvc.Identity, productID uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := cartIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := op(r.Context(), identity, payload.ProductID)
		if err != nil {
			writeCartMutationError(w, r, logg, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func cartIdentity(r *http.Request) (cartsvc.Identity, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return cartsvc.Identity{UserID: &userID}, nil
	}
	if key := middleware.SessionKeyFromContext(r.Context()); key != "" {
		sessionKey := key
		return cartsvc.Identity{SessionKey: &sessionKey}, nil
	}
	return cartsvc.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "no cart identity on request")
}

func writeCartMutationError(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	if errors.Is(err, cartsvc.ErrItemNotInCart) {
		responses.WriteFlatError(r.Context(), logg, w, err)
		return
	}
	responses.WriteError(r.Context(), logg, w, err)
}
