package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
)

// SummaryParams bounds the dashboard query. Zero values fall back to the
// defaults in the service.
type SummaryParams struct {
	Start             time.Time
	End               time.Time
	TopProductsLimit  int
	LowStockThreshold int
	LowStockLimit     int
}

// ProductSales is one row of the best-sellers table.
type ProductSales struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Title      string          `json:"title"`
	SalesCount int             `json:"sales_count"`
	Price      decimal.Decimal `json:"price"`
}

// StockLevel is one row of the low-stock report.
type StockLevel struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Stock     int       `json:"stock"`
}

// Summary is the admin dashboard payload.
type Summary struct {
	Start        time.Time                   `json:"start"`
	End          time.Time                   `json:"end"`
	Revenue      decimal.Decimal             `json:"revenue"`
	OrderCount   int64                       `json:"order_count"`
	StatusCounts map[enums.OrderStatus]int64 `json:"status_counts"`
	TopProducts  []ProductSales              `json:"top_products"`
	LowStock     []StockLevel                `json:"low_stock"`
}
