package orders

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/uncannyvalley/comicshop-backend/pkg/db"
	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
)

// openPostgresTestDB connects to the database named by
// COMICSHOP_TEST_POSTGRES_DSN and skips the test when it is unset. The
// in-memory sqlite helper serializes writers, so FOR UPDATE arbitration can
// only be observed against a real postgres.
func openPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("COMICSHOP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COMICSHOP_TEST_POSTGRES_DSN not set")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate postgres: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"order_items", "orders", "products", "categories", "users"} {
			conn.Exec("DELETE FROM " + table)
		}
	})
	return conn
}

// Two orders race to pay for the last copy. The row lock on the product must
// let exactly one through; the loser sees the shortage and rolls back.
func TestPayConcurrentLastUnit(t *testing.T) {
	conn := openPostgresTestDB(t)
	ctx := context.Background()

	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	product := &models.Product{
		Title: "Action Comics #1 " + uuid.NewString(),
		Stock: 1,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	orderIDs := make([]uuid.UUID, 2)
	for i := range orderIDs {
		userID := uuid.New()
		order := &models.Order{
			UserID: &userID,
			Status: enums.OrderStatusPending,
			Items: []models.OrderItem{{
				ProductID: product.ID,
				Quantity:  1,
				UnitPrice: product.Price,
			}},
		}
		if err := conn.Create(order).Error; err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		orderIDs[i] = order.ID
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, orderID := range orderIDs {
		wg.Add(1)
		go func(i int, orderID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Pay(ctx, orderID)
		}(i, orderID)
	}
	wg.Wait()

	var succeeded, shortages int
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
				t.Fatalf("pay %d: unexpected error %v", i, err)
			}
			shortages++
		}
	}
	if succeeded != 1 || shortages != 1 {
		t.Fatalf("exactly one pay must win: succeeded=%d shortages=%d", succeeded, shortages)
	}

	reloaded := &models.Product{}
	if err := conn.First(reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.Stock != 0 {
		t.Fatalf("stock = %d, want 0", reloaded.Stock)
	}
	if reloaded.SalesCount != 1 {
		t.Fatalf("sales count = %d, want 1", reloaded.SalesCount)
	}
	if reloaded.IsActive {
		t.Fatal("sold-out product must be inactive")
	}

	var paidCount int64
	err = conn.Model(&models.Order{}).
		Where("id IN ? AND status = ?", orderIDs, enums.OrderStatusPaid).
		Count(&paidCount).
		Error
	if err != nil {
		t.Fatalf("count paid orders: %v", err)
	}
	if paidCount != 1 {
		t.Fatalf("paid orders = %d, want 1", paidCount)
	}
}
