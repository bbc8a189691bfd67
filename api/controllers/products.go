package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uncannyvalley/comicshop-backend/api/responses"
	"github.com/uncannyvalley/comicshop-backend/api/validators"
	catalogsvc "github.com/uncannyvalley/comicshop-backend/internal/catalog"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
	"github.com/uncannyvalley/comicshop-backend/pkg/logger"
	"github.com/uncannyvalley/comicshop-backend/pkg/pagination"
)

// ListProducts serves the public storefront listing. Only visible products
// are returned; hidden listings stay hidden no matter the filters.
func ListProducts(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, filters, err := productQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active := true
		filters.Active = &active

		list, err := svc.ListProducts(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, productListResponse{
			Items:      newProductResponses(list.Products),
			NextCursor: list.NextCursor,
		})
	}
}

// AdminListProducts serves the back-office listing, inactive rows included.
func AdminListProducts(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, filters, err := productQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
			active, parseErr := strconv.ParseBool(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "active must be a boolean"))
				return
			}
			filters.Active = &active
		}

		list, err := svc.ListProducts(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, productListResponse{
			Items:      newProductResponses(list.Products),
			NextCursor: list.NextCursor,
		})
	}
}

// GetProduct returns one product by id.
func GetProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

type createProductRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	SKU         *string         `json:"sku,omitempty"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Stock       int             `json:"stock" validate:"min=0"`
	Trending    bool            `json:"trending"`
	Attributes  map[string]any  `json:"attributes,omitempty"`
}

// CreateProduct adds a listing to the catalog.
func CreateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalogsvc.CreateProductInput{
			Title:       validators.SanitizeString(payload.Title, 255),
			Description: payload.Description,
			SKU:         payload.SKU,
			CategoryID:  payload.CategoryID,
			Price:       payload.Price,
			Stock:       payload.Stock,
			Trending:    payload.Trending,
			Attributes:  payload.Attributes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

type updateProductRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	SKU         *string          `json:"sku,omitempty"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Trending    *bool            `json:"trending,omitempty"`
	Attributes  map[string]any   `json:"attributes,omitempty"`
}

// UpdateProduct edits listing fields. Stock is not editable here; it moves
// through the stock adjustment endpoint so visibility stays consistent.
func UpdateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, catalogsvc.UpdateProductInput{
			Title:       payload.Title,
			Description: payload.Description,
			SKU:         payload.SKU,
			CategoryID:  payload.CategoryID,
			Price:       payload.Price,
			Trending:    payload.Trending,
			Attributes:  payload.Attributes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// DeleteProduct removes a listing from the catalog.
func DeleteProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type adjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AdjustStock applies a relative stock change and returns the updated listing.
func AdjustStock(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), id, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

type setTrendingRequest struct {
	Trending bool `json:"trending"`
}

// SetTrending flips the trending flag on a listing.
func SetTrending(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setTrendingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.SetTrending(r.Context(), id, payload.Trending)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

func productQuery(r *http.Request) (pagination.Params, catalogsvc.ProductFilters, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, catalogsvc.ProductFilters{}, err
	}
	params := pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	filters := catalogsvc.ProductFilters{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		categoryID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return pagination.Params{}, catalogsvc.ProductFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid category id")
		}
		filters.CategoryID = &categoryID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("trending")); raw != "" {
		trending, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return pagination.Params{}, catalogsvc.ProductFilters{}, pkgerrors.New(pkgerrors.CodeValidation, "trending must be a boolean")
		}
		filters.Trending = &trending
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("order_by")); raw != "" {
		switch catalogsvc.ProductOrdering(raw) {
		case catalogsvc.OrderByCreatedAt, catalogsvc.OrderBySalesCount, catalogsvc.OrderByPrice, catalogsvc.OrderByStock:
			filters.OrderBy = catalogsvc.ProductOrdering(raw)
		default:
			return pagination.Params{}, catalogsvc.ProductFilters{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported order_by value")
		}
	}

	return params, filters, nil
}
