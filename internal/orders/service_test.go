package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uncannyvalley/comicshop-backend/internal/catalog"
	"github.com/uncannyvalley/comicshop-backend/pkg/db"
	"github.com/uncannyvalley/comicshop-backend/pkg/db/models"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
)

type ordersTestEnv struct {
	conn    *gorm.DB
	repo    *Repository
	catalog *catalog.Repository
	svc     Service
}

func newOrdersTestEnv(t *testing.T) *ordersTestEnv {
	t.Helper()
	conn := openTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &ordersTestEnv{conn: conn, repo: repo, catalog: catalog.NewRepository(conn), svc: svc}
}

func (e *ordersTestEnv) mustProduct(t *testing.T, title, price string, stock int) *models.Product {
	t.Helper()
	product, err := e.catalog.CreateProduct(context.Background(), &models.Product{
		Title: title,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func (e *ordersTestEnv) mustPendingOrder(t *testing.T, userID uuid.UUID, lines ...models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID: &userID,
		Status: enums.OrderStatusPending,
		Items:  lines,
	}
	if err := e.conn.Create(order).Error; err != nil {
		t.Fatalf("create pending order: %v", err)
	}
	return order
}

func (e *ordersTestEnv) reloadProduct(t *testing.T, id uuid.UUID) *models.Product {
	t.Helper()
	product, err := e.catalog.FindProductByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}

func line(productID uuid.UUID, quantity int, price string) models.OrderItem {
	return models.OrderItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func mustCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestPayDeductsStockAndStampsOrder(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Watchmen", "24.99", 5)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 2, "24.99"))

	paid, err := env.svc.Pay(ctx, order.ID)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != enums.OrderStatusPaid {
		t.Fatalf("status = %s, want paid", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Fatal("PaidAt not stamped")
	}
	if want := decimal.RequireFromString("49.98"); !paid.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", paid.Total, want)
	}

	stocked := env.reloadProduct(t, product.ID)
	if stocked.Stock != 3 {
		t.Fatalf("stock = %d, want 3", stocked.Stock)
	}
	if stocked.SalesCount != 2 {
		t.Fatalf("sales count = %d, want 2", stocked.SalesCount)
	}
	if !stocked.IsActive {
		t.Fatal("product with remaining stock must stay active")
	}
}

func TestPayLastCopyDeactivatesProduct(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Sandman #1", "9.99", 1)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 1, "9.99"))

	if _, err := env.svc.Pay(ctx, order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	stocked := env.reloadProduct(t, product.ID)
	if stocked.Stock != 0 || stocked.IsActive {
		t.Fatalf("sold-out product should be inactive at zero stock, got stock=%d active=%v", stocked.Stock, stocked.IsActive)
	}
}

func TestPayIsIdempotent(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Hellblazer", "5.50", 10)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 3, "5.50"))

	first, err := env.svc.Pay(ctx, order.ID)
	if err != nil {
		t.Fatalf("first pay: %v", err)
	}
	second, err := env.svc.Pay(ctx, order.ID)
	if err != nil {
		t.Fatalf("repeat pay: %v", err)
	}
	if !second.PaidAt.Equal(*first.PaidAt) {
		t.Fatal("repeat pay must not restamp PaidAt")
	}
	if stocked := env.reloadProduct(t, product.ID); stocked.Stock != 7 {
		t.Fatalf("repeat pay deducted stock again: stock = %d", stocked.Stock)
	}
}

func TestPayEmptyOrder(t *testing.T) {
	env := newOrdersTestEnv(t)
	order := env.mustPendingOrder(t, uuid.New())

	_, err := env.svc.Pay(context.Background(), order.ID)
	if err != ErrEmptyOrder {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestPayInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	plenty := env.mustProduct(t, "Preacher", "12.00", 10)
	scarce := env.mustProduct(t, "From Hell", "35.00", 1)
	order := env.mustPendingOrder(t, uuid.New(),
		line(plenty.ID, 2, "12.00"),
		line(scarce.ID, 3, "35.00"),
	)

	_, err := env.svc.Pay(ctx, order.ID)
	mustCode(t, err, pkgerrors.CodeInsufficientStock)
	if got := pkgerrors.As(err).Message(); got != "Not enough stock for From Hell" {
		t.Fatalf("message = %q", got)
	}

	if stocked := env.reloadProduct(t, plenty.ID); stocked.Stock != 10 || stocked.SalesCount != 0 {
		t.Fatalf("shortage must roll back the whole payment, got stock=%d sales=%d", stocked.Stock, stocked.SalesCount)
	}
	reloaded, err := env.svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != enums.OrderStatusPending {
		t.Fatalf("order should stay pending, got %s", reloaded.Status)
	}
}

func TestPayOnNonPendingIsNoOp(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "V for Vendetta", "14.00", 5)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 1, "14.00"))

	if err := env.conn.Model(order).Update("status", enums.OrderStatusCancelled).Error; err != nil {
		t.Fatalf("seed status: %v", err)
	}
	paid, err := env.svc.Pay(ctx, order.ID)
	if err != nil {
		t.Fatalf("pay on cancelled order must be a no-op: %v", err)
	}
	if paid.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", paid.Status)
	}
	if stocked := env.reloadProduct(t, product.ID); stocked.Stock != 5 || stocked.SalesCount != 0 {
		t.Fatalf("no-op pay touched inventory: stock=%d sales=%d", stocked.Stock, stocked.SalesCount)
	}
}

func TestCancelRestoresInventory(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Y: The Last Man", "16.50", 4)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 3, "16.50"))

	if _, err := env.svc.Pay(ctx, order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}

	cancelled, err := env.svc.Cancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	stocked := env.reloadProduct(t, product.ID)
	if stocked.Stock != 4 || stocked.SalesCount != 0 {
		t.Fatalf("restore failed: stock=%d sales=%d", stocked.Stock, stocked.SalesCount)
	}
	if !stocked.IsActive {
		t.Fatal("restored stock should reactivate the product")
	}

	// Repeat cancel is a no-op, not a second restock.
	if _, err := env.svc.Cancel(ctx, order.ID); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if stocked := env.reloadProduct(t, product.ID); stocked.Stock != 4 {
		t.Fatalf("repeat cancel restocked again: stock = %d", stocked.Stock)
	}
}

func TestCancelPendingIsNoOp(t *testing.T) {
	env := newOrdersTestEnv(t)
	product := env.mustProduct(t, "Blankets", "29.99", 2)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 1, "29.99"))

	cancelled, err := env.svc.Cancel(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("cancel on pending order must be a no-op: %v", err)
	}
	if cancelled.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", cancelled.Status)
	}
	if stocked := env.reloadProduct(t, product.ID); stocked.Stock != 2 {
		t.Fatalf("no-op cancel restocked: stock = %d", stocked.Stock)
	}
}

func TestCancelFloorsSalesCountAtZero(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Persepolis", "18.00", 6)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 2, "18.00"))

	if _, err := env.svc.Pay(ctx, order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	// An out-of-band counter reset must not push the restore negative.
	if err := env.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("sales_count", 0).Error; err != nil {
		t.Fatalf("reset sales: %v", err)
	}

	if _, err := env.svc.Cancel(ctx, order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if stocked := env.reloadProduct(t, product.ID); stocked.SalesCount != 0 {
		t.Fatalf("sales count went negative: %d", stocked.SalesCount)
	}
}

func TestRefundTransitions(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Berserk Vol. 1", "22.00", 5)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 2, "22.00"))

	if _, err := env.svc.Pay(ctx, order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	refunded, err := env.svc.Refund(ctx, order.ID)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != enums.OrderStatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Status)
	}
	if stocked := env.reloadProduct(t, product.ID); stocked.Stock != 5 {
		t.Fatalf("refund must restore stock, got %d", stocked.Stock)
	}

	// Repeat refund is a no-op; so is shipping a refunded order.
	if _, err := env.svc.Refund(ctx, order.ID); err != nil {
		t.Fatalf("repeat refund: %v", err)
	}
	still, err := env.svc.MarkShipped(ctx, order.ID)
	if err != nil {
		t.Fatalf("ship on refunded order must be a no-op: %v", err)
	}
	if still.Status != enums.OrderStatusRefunded {
		t.Fatalf("status = %s, want refunded", still.Status)
	}
}

func TestShipAndCompleteFlow(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Nausicaa", "19.99", 8)
	order := env.mustPendingOrder(t, uuid.New(), line(product.ID, 1, "19.99"))

	if _, err := env.svc.Pay(ctx, order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	shipped, err := env.svc.MarkShipped(ctx, order.ID)
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if shipped.Status != enums.OrderStatusShipped {
		t.Fatalf("status = %s, want shipped", shipped.Status)
	}
	if _, err := env.svc.MarkShipped(ctx, order.ID); err != nil {
		t.Fatalf("repeat ship should be a no-op: %v", err)
	}

	completed, err := env.svc.Complete(ctx, order.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != enums.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}

	// Completed orders are terminal: a late ship call changes nothing.
	still, err := env.svc.MarkShipped(ctx, order.ID)
	if err != nil {
		t.Fatalf("ship on completed order must be a no-op: %v", err)
	}
	if still.Status != enums.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", still.Status)
	}
	if stocked := env.reloadProduct(t, product.ID); stocked.Stock != 7 {
		t.Fatalf("completion must not touch stock, got %d", stocked.Stock)
	}
}

func TestCreateDirect(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	first := env.mustProduct(t, "Locke & Key", "17.25", 5)
	second := env.mustProduct(t, "Paper Girls", "9.75", 3)

	order, err := env.svc.CreateDirect(ctx, userID, []DirectLine{
		{ProductID: first.ID, Quantity: 2},
		{ProductID: second.ID, Quantity: 1},
	}, map[string]any{"line1": "4 Oak Ave"})
	if err != nil {
		t.Fatalf("create direct: %v", err)
	}
	if order.Status != enums.OrderStatusPaid || order.PaidAt == nil {
		t.Fatalf("direct order must be settled, got %s", order.Status)
	}
	if want := decimal.RequireFromString("44.25"); !order.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", order.Total, want)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.UnitPrice.IsZero() {
			t.Fatal("unit price not snapshotted")
		}
	}
	if len(order.ShippingAddress) == 0 {
		t.Fatal("shipping address not persisted")
	}
	if stocked := env.reloadProduct(t, first.ID); stocked.Stock != 3 || stocked.SalesCount != 2 {
		t.Fatalf("stock not settled: stock=%d sales=%d", stocked.Stock, stocked.SalesCount)
	}
}

func TestCreateDirectShortageCreatesNothing(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	plenty := env.mustProduct(t, "Monstress", "14.99", 10)
	scarce := env.mustProduct(t, "Saga Vol. 9", "14.99", 1)

	_, err := env.svc.CreateDirect(ctx, userID, []DirectLine{
		{ProductID: plenty.ID, Quantity: 1},
		{ProductID: scarce.ID, Quantity: 2},
	}, nil)
	mustCode(t, err, pkgerrors.CodeInsufficientStock)

	var count int64
	if err := env.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("shortage left %d partial orders", count)
	}
	if stocked := env.reloadProduct(t, plenty.ID); stocked.Stock != 10 {
		t.Fatalf("shortage left stock deducted: %d", stocked.Stock)
	}
}

func TestCreateDirectValidation(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Bone Vol. 2", "11.00", 5)

	if _, err := env.svc.CreateDirect(ctx, uuid.New(), nil, nil); err != ErrEmptyOrder {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
	_, err := env.svc.CreateDirect(ctx, uuid.New(), []DirectLine{{ProductID: product.ID, Quantity: 0}}, nil)
	mustCode(t, err, pkgerrors.CodeValidation)
	_, err = env.svc.CreateDirect(ctx, uuid.New(), []DirectLine{
		{ProductID: product.ID, Quantity: 1},
		{ProductID: product.ID, Quantity: 2},
	}, nil)
	mustCode(t, err, pkgerrors.CodeValidation)
	_, err = env.svc.CreateDirect(ctx, uuid.New(), []DirectLine{{ProductID: uuid.New(), Quantity: 1}}, nil)
	mustCode(t, err, pkgerrors.CodeNotFound)
}

func TestRecalculateTotal(t *testing.T) {
	env := newOrdersTestEnv(t)
	ctx := context.Background()
	product := env.mustProduct(t, "Invincible", "8.99", 10)
	order := env.mustPendingOrder(t, uuid.New(),
		line(product.ID, 2, "8.99"),
	)

	if err := env.conn.Model(order).Update("total", decimal.RequireFromString("999.00")).Error; err != nil {
		t.Fatalf("corrupt total: %v", err)
	}
	fixed, err := env.svc.RecalculateTotal(ctx, order.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if want := decimal.RequireFromString("17.98"); !fixed.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", fixed.Total, want)
	}
}

func TestGetNotFound(t *testing.T) {
	env := newOrdersTestEnv(t)
	_, err := env.svc.Get(context.Background(), uuid.New())
	mustCode(t, err, pkgerrors.CodeNotFound)
}
