package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/models"
	"tiemcom/internal/repositories"
	"tiemcom/internal/services"
	"tiemcom/pkg/paypal"
	"tiemcom/pkg/rabbitmq"
)

// fakeGateway is a controllable in-memory payment gateway.
type fakeGateway struct {
	createErr   error
	sendErr     error
	qrErr       error
	cancelErr   error
	statusErr   error
	status      paypal.InvoiceStatus
	createCalls int
	cancelCalls int
	lastItems   []paypal.InvoiceItem
}

func (g *fakeGateway) CreateInvoice(_ context.Context, items []paypal.InvoiceItem) (string, error) {
	g.createCalls++
	g.lastItems = items
	if g.createErr != nil {
		return "", g.createErr
	}
	return "INV-TEST-1", nil
}

func (g *fakeGateway) SendInvoice(context.Context, string) error { return g.sendErr }

func (g *fakeGateway) FetchQRCode(context.Context, string) ([]byte, error) {
	if g.qrErr != nil {
		return nil, g.qrErr
	}
	return []byte("png-bytes"), nil
}

func (g *fakeGateway) CheckStatus(context.Context, string) (paypal.InvoiceStatus, error) {
	if g.statusErr != nil {
		return paypal.InvoiceStatus{}, g.statusErr
	}
	return g.status, nil
}

func (g *fakeGateway) CancelInvoice(context.Context, string) error {
	g.cancelCalls++
	return g.cancelErr
}

// fakeImages returns a deterministic hosted URL.
type fakeImages struct{ uploads int }

func (f *fakeImages) Upload(_ context.Context, publicID string, _ []byte) (string, error) {
	f.uploads++
	return "https://img.test/" + publicID + ".png", nil
}

// countingOrderRepo counts mutating calls on top of the in-memory repo so
// tests can assert that idempotent operations write nothing.
type countingOrderRepo struct {
	*repositories.MockOrderRepository
	statusWrites int
}

func (r *countingOrderRepo) UpdateStatusByUID(uid string, status int) error {
	r.statusWrites++
	return r.MockOrderRepository.UpdateStatusByUID(uid, status)
}

type fixture struct {
	orders  *countingOrderRepo
	foods   *repositories.MockFoodRepository
	gateway *fakeGateway
	images  *fakeImages
	service *services.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:  &countingOrderRepo{MockOrderRepository: repositories.NewMockOrderRepository()},
		foods:   repositories.NewMockFoodRepository(),
		gateway: &fakeGateway{status: paypal.InvoiceStatus{Status: "SENT"}},
		images:  &fakeImages{},
	}
	f.service = services.NewOrderService(f.orders, f.foods, f.gateway, f.images, nil,
		services.OrderConfig{VNDToUSDRate: 25000})
	return f
}

func (f *fixture) seedFood(t *testing.T, id, name string, price int64, quantity int) {
	t.Helper()
	err := f.foods.Create(&models.Food{ID: id, Name: name, Price: price, Quantity: quantity})
	assert.NoError(t, err)
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	food, err := f.foods.GetByID(id)
	assert.NoError(t, err)
	return food.Quantity
}

func TestOrderService_CreateOrder(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 2}},
	})

	assert.NoError(t, err)
	assert.Equal(t, "000", order.UID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, int64(100000), order.TotalPrice)
	assert.Equal(t, "INV-TEST-1", order.InvoiceID)
	assert.Equal(t, "https://img.test/qr-INV-TEST-1.png", order.QRURL)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, int64(50000), order.Items[0].Price)

	// Stock is untouched until the order is paid.
	assert.Equal(t, 10, f.stockOf(t, "food-1"))

	// The invoice was quoted in USD at the fixed rate (50000/25000).
	assert.Len(t, f.gateway.lastItems, 1)
	assert.Equal(t, "USD", f.gateway.lastItems[0].UnitPrice.Currency)
	assert.Equal(t, "2.00", f.gateway.lastItems[0].UnitPrice.Value)
}

func TestOrderService_CreateOrder_UIDSequence(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 100)

	for _, want := range []string{"000", "001", "002"} {
		order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
			Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 1}},
		})
		assert.NoError(t, err)
		assert.Equal(t, want, order.UID)
	}
}

func TestOrderService_CreateOrder_FoodNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "missing", Quantity: 1}},
	})

	assert.Error(t, err)
	assert.Equal(t, 404, apperrors.StatusOf(err))
	// Fail-fast: no invoice was issued and nothing was persisted.
	assert.Equal(t, 0, f.gateway.createCalls)
	orders, _ := f.orders.GetAll()
	assert.Empty(t, orders)
}

func TestOrderService_CreateOrder_InvalidInput(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	_, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{})
	assert.Equal(t, 400, apperrors.StatusOf(err))

	_, err = f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 0}},
	})
	assert.Equal(t, 400, apperrors.StatusOf(err))
}

func TestOrderService_CreateOrder_GatewayFailureAbortsCreation(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)
	f.gateway.createErr = apperrors.GatewayUnavailable("create invoice", assert.AnError)

	_, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 1}},
	})

	assert.Error(t, err)
	assert.Equal(t, 500, apperrors.StatusOf(err))
	orders, _ := f.orders.GetAll()
	assert.Empty(t, orders)
}

func TestOrderService_SetStatus_DebitsInventoryOnce(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 2}},
	})
	assert.NoError(t, err)

	// First entry into the fulfilled state debits stock.
	updated, err := f.service.SetStatusByUID(context.Background(), order.UID, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, 8, f.stockOf(t, "food-1"))

	// Re-entering is a no-op for inventory.
	_, err = f.service.SetStatusByUID(context.Background(), order.UID, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, 8, f.stockOf(t, "food-1"))

	// Even a detour through another state and back never debits again.
	_, err = f.service.SetStatusByUID(context.Background(), order.UID, models.StatusDelivered)
	assert.NoError(t, err)
	_, err = f.service.SetStatusByUID(context.Background(), order.UID, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, 8, f.stockOf(t, "food-1"))
}

func TestOrderService_SetStatus_InsufficientStockLeavesAllUnchanged(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)
	f.seedFood(t, "food-2", "Trà đá", 10000, 1)

	order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{
			{FoodID: "food-1", Quantity: 2},
			{FoodID: "food-2", Quantity: 5},
		},
	})
	assert.NoError(t, err)

	_, err = f.service.SetStatusByUID(context.Background(), order.UID, models.StatusConfirmed)
	assert.Error(t, err)
	assert.Equal(t, 400, apperrors.StatusOf(err))
	assert.Contains(t, err.Error(), "Trà đá")

	// The batch is atomic: the passing line was not debited either, and
	// the order never left Pending.
	assert.Equal(t, 10, f.stockOf(t, "food-1"))
	assert.Equal(t, 1, f.stockOf(t, "food-2"))
	current, err := f.orders.GetByUID(order.UID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, current.Status)
}

func TestOrderService_SetStatus_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SetStatusByUID(context.Background(), "000", 9)
	assert.Equal(t, 400, apperrors.StatusOf(err))

	_, err = f.service.SetStatusByUID(context.Background(), "999", models.StatusConfirmed)
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestOrderService_Cancel_BestEffortInvoiceCancellation(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 1}},
	})
	assert.NoError(t, err)

	// The gateway rejecting the cancellation does not block the local
	// transition; local state is authoritative.
	f.gateway.cancelErr = assert.AnError
	updated, err := f.service.SetStatusByUID(context.Background(), order.UID, models.StatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, 1, f.gateway.cancelCalls)

	// Cancelling an already-cancelled order does not call out again.
	_, err = f.service.SetStatusByUID(context.Background(), order.UID, models.StatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.gateway.cancelCalls)
}

func TestOrderService_Reconcile_PaidDebitsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 2}},
	})
	assert.NoError(t, err)

	f.gateway.status = paypal.InvoiceStatus{Status: "PAID", PaidAmount: 4.00}
	report, err := f.service.ReconcileStatus(context.Background(), order.UID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, report.Status)
	assert.Equal(t, "PAID", report.GatewayStatus)
	assert.Equal(t, 4.00, report.PaidAmount)
	assert.Equal(t, int64(100000), report.TotalPrice)
	assert.Equal(t, 8, f.stockOf(t, "food-1"))
	writesAfterFirst := f.orders.statusWrites

	// Unchanged external status: same report, no additional writes.
	again, err := f.service.ReconcileStatus(context.Background(), order.UID)
	assert.NoError(t, err)
	assert.Equal(t, report, again)
	assert.Equal(t, writesAfterFirst, f.orders.statusWrites)
	assert.Equal(t, 8, f.stockOf(t, "food-1"))
}

func TestOrderService_Reconcile_UnknownStatusIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 1}},
	})
	assert.NoError(t, err)

	f.gateway.status = paypal.InvoiceStatus{Status: "SENT"}
	report, err := f.service.ReconcileStatus(context.Background(), order.UID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, report.Status)
	assert.Equal(t, 0, f.orders.statusWrites)
	assert.Equal(t, 10, f.stockOf(t, "food-1"))
}

func TestOrderService_Reconcile_CancelledMapsToCancelled(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	order, err := f.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 1}},
	})
	assert.NoError(t, err)

	f.gateway.status = paypal.InvoiceStatus{Status: "CANCELLED"}
	report, err := f.service.ReconcileStatus(context.Background(), order.UID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Equal(t, 10, f.stockOf(t, "food-1"))
}

func TestOrderService_GetMonthlyReport(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 100)
	f.seedFood(t, "food-2", "Trà đá", 10000, 100)

	march := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	april := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)

	seed := []models.Order{
		{UID: "000", TotalPrice: 100000, Status: models.StatusDelivered,
			Items: []models.OrderItem{{FoodID: "food-1", Quantity: 2, Price: 50000}}},
		{UID: "001", TotalPrice: 20000, Status: models.StatusDelivered,
			Items: []models.OrderItem{{FoodID: "food-2", Quantity: 2, Price: 10000}}},
		// Outside the queried month; must not count.
		{UID: "002", TotalPrice: 500000, Status: models.StatusDelivered,
			Items: []models.OrderItem{{FoodID: "food-2", Quantity: 10, Price: 10000}}},
	}
	seed[0].CreatedAt = march
	seed[1].CreatedAt = march.Add(time.Hour)
	seed[2].CreatedAt = april
	for i := range seed {
		assert.NoError(t, f.orders.Create(&seed[i]))
	}

	report, err := f.service.GetMonthlyReport(3, 2026)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.TotalOrders)
	assert.Equal(t, int64(120000), report.TotalRevenue)
	// Both foods sold quantity 2; the tie goes to the first encountered.
	assert.NotNil(t, report.BestSeller)
	assert.Equal(t, "food-1", report.BestSeller.FoodID)
	assert.Equal(t, "Cơm tấm", report.BestSeller.Name)
	assert.Equal(t, 2, report.BestSeller.Quantity)
}

func TestOrderService_GetMonthlyReport_InvalidMonth(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.GetMonthlyReport(13, 2026)
	assert.Equal(t, 400, apperrors.StatusOf(err))
}

func TestOrderService_PublishesLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	f.seedFood(t, "food-1", "Cơm tấm", 50000, 10)

	publisher := &capturingPublisher{}
	svc := services.NewOrderService(f.orders, f.foods, f.gateway, f.images, publisher,
		services.OrderConfig{VNDToUSDRate: 25000})

	order, err := svc.CreateOrder(context.Background(), services.CreateOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: "food-1", Quantity: 1}},
	})
	assert.NoError(t, err)
	assert.Len(t, publisher.created, 1)
	assert.Equal(t, order.UID, publisher.created[0].UID)

	_, err = svc.SetStatusByUID(context.Background(), order.UID, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Len(t, publisher.statusChanged, 1)
	assert.Equal(t, models.StatusConfirmed, publisher.statusChanged[0].Status)
}

type capturingPublisher struct {
	created       []rabbitmq.OrderEvent
	statusChanged []rabbitmq.OrderEvent
}

func (p *capturingPublisher) PublishOrderCreated(event rabbitmq.OrderEvent) error {
	p.created = append(p.created, event)
	return nil
}

func (p *capturingPublisher) PublishOrderStatusChanged(event rabbitmq.OrderEvent) error {
	p.statusChanged = append(p.statusChanged, event)
	return nil
}
