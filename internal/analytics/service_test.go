package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
)

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus, total string, createdAt time.Time) {
	t.Helper()
	userID := uuid.New()
	require.NoError(t, conn.Create(&models.Order{
		UserID:    &userID,
		Status:    status,
		Total:     decimal.RequireFromString(total),
		CreatedAt: createdAt,
	}).Error)
}

func seedProduct(t *testing.T, conn *gorm.DB, title string, stock, sales int) {
	t.Helper()
	product := &models.Product{
		Title:      title,
		Price:      decimal.RequireFromString("10.00"),
		Stock:      stock,
		SalesCount: sales,
	}
	require.NoError(t, conn.Create(product).Error)
}

func TestSummaryAggregates(t *testing.T) {
	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	now := time.Now().UTC()
	inWindow := now.Add(-time.Hour)

	seedOrder(t, conn, enums.OrderStatusPaid, "10.00", inWindow)
	seedOrder(t, conn, enums.OrderStatusShipped, "20.00", inWindow)
	seedOrder(t, conn, enums.OrderStatusCompleted, "30.00", inWindow)
	// Unsettled or out-of-window orders must not count as revenue.
	seedOrder(t, conn, enums.OrderStatusPending, "99.00", inWindow)
	seedOrder(t, conn, enums.OrderStatusCancelled, "99.00", inWindow)
	seedOrder(t, conn, enums.OrderStatusRefunded, "99.00", inWindow)
	seedOrder(t, conn, enums.OrderStatusPaid, "99.00", now.Add(-90*24*time.Hour))

	seedProduct(t, conn, "Saga", 50, 12)
	seedProduct(t, conn, "Akira", 2, 7)
	seedProduct(t, conn, "Dud", 40, 0)
	seedProduct(t, conn, "Bone", 0, 3)

	summary, err := svc.Summary(context.Background(), SummaryParams{})
	require.NoError(t, err)

	require.True(t, summary.Revenue.Equal(decimal.RequireFromString("60.00")),
		"revenue = %s", summary.Revenue)
	require.EqualValues(t, 3, summary.OrderCount)
	require.EqualValues(t, 1, summary.StatusCounts[enums.OrderStatusPending])
	require.EqualValues(t, 1, summary.StatusCounts[enums.OrderStatusCancelled])

	require.Len(t, summary.TopProducts, 3, "zero-sales products stay off the board")
	require.Equal(t, "Saga", summary.TopProducts[0].Title)
	require.Equal(t, "Akira", summary.TopProducts[1].Title)

	// Default threshold is 5: Akira (2) and Bone (0), emptiest first.
	require.Len(t, summary.LowStock, 2)
	require.Equal(t, "Bone", summary.LowStock[0].Title)
	require.Equal(t, 0, summary.LowStock[0].Stock)
	require.Equal(t, "Akira", summary.LowStock[1].Title)
}

func TestSummaryWindowAndLimits(t *testing.T) {
	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	now := time.Now().UTC()
	seedOrder(t, conn, enums.OrderStatusPaid, "15.00", now.Add(-time.Hour))
	seedOrder(t, conn, enums.OrderStatusPaid, "25.00", now.Add(-72*time.Hour))
	seedProduct(t, conn, "A", 1, 5)
	seedProduct(t, conn, "B", 1, 4)

	summary, err := svc.Summary(context.Background(), SummaryParams{
		Start:            now.Add(-24 * time.Hour),
		End:              now,
		TopProductsLimit: 1,
	})
	require.NoError(t, err)
	require.True(t, summary.Revenue.Equal(decimal.RequireFromString("15.00")))
	require.EqualValues(t, 1, summary.OrderCount)
	require.Len(t, summary.TopProducts, 1)
	require.Equal(t, "A", summary.TopProducts[0].Title)
}

func TestSummaryRejectsInvertedWindow(t *testing.T) {
	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = svc.Summary(context.Background(), SummaryParams{Start: now, End: now.Add(-time.Hour)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
