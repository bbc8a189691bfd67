package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
)

// settledStatuses are the order states that count as realized revenue.
var settledStatuses = []enums.OrderStatus{
	enums.OrderStatusPaid,
	enums.OrderStatusShipped,
	enums.OrderStatusCompleted,
}

// Repository runs the aggregate queries behind the admin dashboard.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an analytics repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RevenueAndCount sums realized revenue and counts settled orders inside the
// window.
func (r *Repository) RevenueAndCount(ctx context.Context, start, end time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Revenue    decimal.Decimal
		OrderCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS order_count").
		Where("status IN ?", settledStatuses).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&row).
		Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return row.Revenue, row.OrderCount, nil
}

// CountByStatus breaks settled and unsettled orders in the window down by
// status.
func (r *Repository) CountByStatus(ctx context.Context, start, end time.Time) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// TopProducts returns the best sellers, highest sales count first.
func (r *Repository) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id AS product_id, title, sales_count, price").
		Where("sales_count > 0").
		Order("sales_count DESC").
		Order("title ASC").
		Limit(limit).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LowStock returns products at or below the threshold, emptiest shelf first.
func (r *Repository) LowStock(ctx context.Context, threshold, limit int) ([]StockLevel, error) {
	var rows []StockLevel
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id AS product_id, title, stock").
		Where("stock <= ?", threshold).
		Order("stock ASC").
		Order("title ASC").
		Limit(limit).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
