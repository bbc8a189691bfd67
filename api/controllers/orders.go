package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/uncannyvalley/comicshop-backend/api/middleware"
	"github.com/uncannyvalley/comicshop-backend/api/responses"
	"github.com/uncannyvalley/comicshop-backend/api/validators"
	orderssvc "github.com/uncannyvalley/comicshop-backend/internal/orders"
	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
	"github.com/uncannyvalley/comicshop-backend/pkg/logger"
	"github.com/uncannyvalley/comicshop-backend/pkg/pagination"
)

// ListOrders returns the caller's settled orders, newest first.
func ListOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		orders, nextCursor, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderListResponse{
			Items:      newOrderResponses(orders),
			NextCursor: nextCursor,
		})
	}
}

// GetOrder returns one order. Customers only see their own; admin roles see
// any order.
func GetOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := loadOwnedOrder(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type directOrderLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items           []directOrderLine `json:"items" validate:"required,min=1,dive"`
	ShippingAddress map[string]any    `json:"shipping_address,omitempty"`
}

// CreateOrder is the direct purchase path: stock is validated and settled in
// one shot without an intermediate cart.
func CreateOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]orderssvc.DirectLine, 0, len(payload.Items))
		for _, line := range payload.Items {
			lines = append(lines, orderssvc.DirectLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		order, err := svc.CreateDirect(r.Context(), userID, lines, payload.ShippingAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// PayOrder settles a pending order. Responses use the storefront's flat
// {"detail": ...} shape.
func PayOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, svc.Pay, "Order paid.")
}

// CancelOrder cancels a paid or shipped order and restores inventory.
func CancelOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, svc.Cancel, "Order cancelled.")
}

// RefundOrder refunds a paid order and restores inventory.
func RefundOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, svc.Refund, "Order refunded.")
}

// ShipOrder marks a paid order as shipped. Admin only.
func ShipOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, svc.MarkShipped, "Order shipped.")
}

// CompleteOrder marks a paid or shipped order as completed. Admin only.
func CompleteOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, svc.Complete, "Order completed.")
}

func orderAction(svc orderssvc.Service, logg *logger.Logger, op func(ctx context.Context, orderID uuid.UUID) (*models.Order, error), message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := loadOwnedOrder(r, svc)
		if err != nil {
			responses.WriteDetailError(r.Context(), logg, w, err)
			return
		}

		if _, err := op(r.Context(), order.ID); err != nil {
			responses.WriteDetailError(r.Context(), logg, w, err)
			return
		}

		responses.WriteDetail(w, http.StatusOK, message)
	}
}

// adminOrderAction skips the ownership check; the router already gates these
// behind the admin role.
func adminOrderAction(svc orderssvc.Service, logg *logger.Logger, op func(ctx context.Context, orderID uuid.UUID) (*models.Order, error), message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteDetailError(r.Context(), logg, w, err)
			return
		}

		if _, err := op(r.Context(), orderID); err != nil {
			responses.WriteDetailError(r.Context(), logg, w, err)
			return
		}

		responses.WriteDetail(w, http.StatusOK, message)
	}
}

// loadOwnedOrder fetches the order and enforces that non-admin callers only
// touch their own orders. A foreign order reads as absent, not forbidden.
func loadOwnedOrder(r *http.Request, svc orderssvc.Service) (*models.Order, error) {
	orderID, err := pathUUID(r, "orderID")
	if err != nil {
		return nil, err
	}

	order, err := svc.Get(r.Context(), orderID)
	if err != nil {
		return nil, err
	}

	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	if role.IsAdmin() {
		return order, nil
	}

	userID, err := currentUserID(r)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
