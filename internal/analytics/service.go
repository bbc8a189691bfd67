package analytics

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
)

const (
	defaultWindow            = 30 * 24 * time.Hour
	defaultTopProductsLimit  = 10
	defaultLowStockThreshold = 5
	defaultLowStockLimit     = 20
	maxListLimit             = 100
)

// Service assembles the admin dashboard summary.
type Service interface {
	Summary(ctx context.Context, params SummaryParams) (*Summary, error)
}

type service struct {
	repo *Repository
}

// NewService builds the analytics service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Summary(ctx context.Context, params SummaryParams) (*Summary, error) {
	end := params.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := params.Start
	if start.IsZero() {
		start = end.Add(-defaultWindow)
	}
	if !start.Before(end) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window start must precede end")
	}

	topLimit := clampLimit(params.TopProductsLimit, defaultTopProductsLimit)
	lowLimit := clampLimit(params.LowStockLimit, defaultLowStockLimit)
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}

	revenue, count, err := s.repo.RevenueAndCount(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate revenue")
	}
	statusCounts, err := s.repo.CountByStatus(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders by status")
	}
	top, err := s.repo.TopProducts(ctx, topLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top products")
	}
	low, err := s.repo.LowStock(ctx, threshold, lowLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}

	return &Summary{
		Start:        start,
		End:          end,
		Revenue:      revenue,
		OrderCount:   count,
		StatusCounts: statusCounts,
		TopProducts:  top,
		LowStock:     low,
	}, nil
}

func clampLimit(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	if value > maxListLimit {
		return maxListLimit
	}
	return value
}
