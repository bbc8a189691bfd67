package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/uncannyvalley/comicshop-backend/api/responses"
	"github.com/uncannyvalley/comicshop-backend/api/validators"
	analyticssvc "github.com/uncannyvalley/comicshop-backend/internal/analytics"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
	"github.com/uncannyvalley/comicshop-backend/pkg/logger"
)

// AnalyticsSummary serves the admin dashboard aggregate: revenue, order
// counts by status, best sellers, and low-stock alerts.
func AnalyticsSummary(svc analyticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := analyticssvc.SummaryParams{}

		start, err := queryTime(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := queryTime(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Start = start
		params.End = end

		if params.TopProductsLimit, err = validators.ParseQueryInt(r, "top_limit", 0, 0, 100); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.LowStockThreshold, err = validators.ParseQueryInt(r, "low_stock_threshold", 0, 0, 1000); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.LowStockLimit, err = validators.ParseQueryInt(r, "low_stock_limit", 0, 0, 100); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "timestamp must be RFC3339").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
