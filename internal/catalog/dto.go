package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
)

// ProductOrdering names the supported ORDER BY columns for product listings.
type ProductOrdering string

const (
	OrderByCreatedAt  ProductOrdering = "created_at"
	OrderBySalesCount ProductOrdering = "sales_count"
	OrderByPrice      ProductOrdering = "price"
	OrderByStock      ProductOrdering = "stock"
)

// ProductFilters narrows product listings.
type ProductFilters struct {
	CategoryID *uuid.UUID
	Active     *bool
	Trending   *bool
	Query      string
	OrderBy    ProductOrdering
}

// ProductList is one page of products plus the cursor for the next page.
type ProductList struct {
	Products   []models.Product
	NextCursor string
}

// CreateCategoryInput carries the fields accepted when creating a category.
type CreateCategoryInput struct {
	Name     string
	ParentID *uuid.UUID
}

// UpdateCategoryInput carries the mutable category fields; nil means keep.
type UpdateCategoryInput struct {
	Name     *string
	ParentID *uuid.UUID
}

// CreateProductInput carries the fields accepted when creating a product.
type CreateProductInput struct {
	Title       string
	Description string
	SKU         *string
	CategoryID  *uuid.UUID
	Price       decimal.Decimal
	Stock       int
	Trending    bool
	Attributes  map[string]any
}

// UpdateProductInput carries the mutable product fields; nil means keep.
/// Stock is deliberately absent: stock changes go through AdjustStock so the
// visibility recomputation cannot be skipped.
type UpdateProductInput struct {
	Title       *string
	Description *string
	SKU         *string
	CategoryID  *uuid.UUID
	Price       *decimal.Decimal
	Trending    *bool
	Attributes  map[string]any
}
