package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/models"
	"tiemcom/internal/repositories"
	"tiemcom/pkg/paypal"
	"tiemcom/pkg/rabbitmq"
)

// PaymentGateway is the slice of the invoicing API the lifecycle engine
// consumes. Implemented by *paypal.Client.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, items []paypal.InvoiceItem) (string, error)
	SendInvoice(ctx context.Context, invoiceID string) error
	FetchQRCode(ctx context.Context, invoiceID string) ([]byte, error)
	CheckStatus(ctx context.Context, invoiceID string) (paypal.InvoiceStatus, error)
	CancelInvoice(ctx context.Context, invoiceID string) error
}

// ImageStore hosts QR code images. Implemented by *cloudinary.Client.
type ImageStore interface {
	Upload(ctx context.Context, publicID string, data []byte) (string, error)
}

// EventPublisher publishes order lifecycle events. Implemented by
// *rabbitmq.Client. May be nil, in which case publishing is skipped.
type EventPublisher interface {
	PublishOrderCreated(event rabbitmq.OrderEvent) error
	PublishOrderStatusChanged(event rabbitmq.OrderEvent) error
}

// OrderConfig carries the configuration the engine needs at construction
// time instead of reading ambient global state.
type OrderConfig struct {
	// VNDToUSDRate is the fixed VND-per-USD rate used to quote invoices.
	VNDToUSDRate int64
	// CreateRetries bounds UID re-allocation when a concurrent creation
	// wins the same UID at the storage layer.
	CreateRetries int
}

// OrderItemRequest is one requested line of a new order.
type OrderItemRequest struct {
	FoodID   string `json:"food_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest is the payload for creating an order.
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// StatusReport is the result of reconciling an order against the payment
// gateway.
type StatusReport struct {
	OrderID       string             `json:"order_id"`
	UID           string             `json:"uid"`
	Status        int                `json:"status"`
	GatewayStatus string             `json:"gateway_status"`
	PaidAmount    float64            `json:"paid_amount"`
	Items         []models.OrderItem `json:"items"`
	TotalPrice    int64              `json:"total_price"`
}

// BestSeller is the food with the highest cumulative quantity in a month.
type BestSeller struct {
	FoodID   string `json:"food_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// MonthlyReport aggregates a month of orders.
type MonthlyReport struct {
	Month        int         `json:"month"`
	Year         int         `json:"year"`
	TotalOrders  int         `json:"total_orders"`
	TotalRevenue int64       `json:"total_revenue"`
	BestSeller   *BestSeller `json:"best_seller"`
}

// OrderService is the order lifecycle engine: it owns UID allocation,
// invoice issuance, status transitions and the inventory debit that happens
// exactly once per order. Food quantities and order statuses are mutated
// nowhere else.
type OrderService struct {
	orders  repositories.OrderRepository
	foods   repositories.FoodRepository
	gateway PaymentGateway
	images  ImageStore
	events  EventPublisher
	uids    *UIDAllocator
	cfg     OrderConfig
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orders repositories.OrderRepository,
	foods repositories.FoodRepository,
	gateway PaymentGateway,
	images ImageStore,
	events EventPublisher,
	cfg OrderConfig,
) *OrderService {
	if cfg.VNDToUSDRate <= 0 {
		cfg.VNDToUSDRate = 26000
	}
	if cfg.CreateRetries <= 0 {
		cfg.CreateRetries = 3
	}
	return &OrderService{
		orders:  orders,
		foods:   foods,
		gateway: gateway,
		images:  images,
		events:  events,
		uids:    NewUIDAllocator(orders),
		cfg:     cfg,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orders.GetAll()
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orders.GetByID(id)
}

// GetDeliveringOrders retrieves orders currently being delivered.
func (s *OrderService) GetDeliveringOrders() ([]models.Order, error) {
	return s.orders.GetDelivering()
}

// CreateOrder prices the requested items, issues and sends an invoice,
// hosts its QR code, allocates a UID and persists the order as Pending.
// Inventory is NOT touched here: stock is only debited on confirmed
// payment, so unpaid orders never lock up stock. Any failure before the
// persistence step leaves no partial order behind; a failure after invoice
// issuance orphans the external invoice, which is reported, not hidden.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	var totalPrice int64
	items := make([]models.OrderItem, 0, len(req.Items))
	invoiceItems := make([]paypal.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperrors.InvalidInput("quantity for food %s must be positive", item.FoodID)
		}
		food, err := s.foods.GetByID(item.FoodID)
		if err != nil {
			return nil, err
		}
		totalPrice += food.Price * int64(item.Quantity)
		items = append(items, models.OrderItem{
			FoodID:   food.ID,
			Quantity: item.Quantity,
			Price:    food.Price,
		})
		invoiceItems = append(invoiceItems, paypal.InvoiceItem{
			Name:     food.Name,
			Quantity: item.Quantity,
			UnitPrice: paypal.Money{
				Currency: "USD",
				Value:    s.usdValue(food.Price),
			},
		})
	}

	invoiceID, err := s.gateway.CreateInvoice(ctx, invoiceItems)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.SendInvoice(ctx, invoiceID); err != nil {
		return nil, fmt.Errorf("invoice %s issued but not sent: %w", invoiceID, err)
	}
	qrImage, err := s.gateway.FetchQRCode(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice %s issued but QR code unavailable: %w", invoiceID, err)
	}
	qrURL, err := s.images.Upload(ctx, "qr-"+invoiceID, qrImage)
	if err != nil {
		return nil, fmt.Errorf("invoice %s issued but QR upload failed: %w", invoiceID, err)
	}

	// A concurrent creation can win the same UID at the unique index;
	// re-allocate and retry a bounded number of times.
	var order *models.Order
	for attempt := 0; attempt < s.cfg.CreateRetries; attempt++ {
		uid, err := s.uids.Next()
		if err != nil {
			return nil, err
		}
		order = &models.Order{
			UID:        uid,
			Items:      items,
			Status:     models.StatusPending,
			TotalPrice: totalPrice,
			InvoiceID:  invoiceID,
			QRURL:      qrURL,
		}
		err = s.orders.Create(order)
		if err == nil {
			break
		}
		if errors.Is(err, apperrors.ErrConflict) {
			order = nil
			continue
		}
		return nil, fmt.Errorf("invoice %s issued but order not persisted: %w", invoiceID, err)
	}
	if order == nil {
		return nil, fmt.Errorf("invoice %s issued but order not persisted: %w", invoiceID, apperrors.ErrConflict)
	}

	if s.events != nil {
		if err := s.events.PublishOrderCreated(rabbitmq.OrderEvent{
			OrderID:    order.ID,
			UID:        order.UID,
			Status:     order.Status,
			TotalPrice: order.TotalPrice,
		}); err != nil {
			log.Printf("Warning: failed to publish order created event for order %s: %v", order.ID, err)
		}
	}

	return order, nil
}

// SetStatusByUID is the staff-driven status transition.
func (s *OrderService) SetStatusByUID(ctx context.Context, uid string, status int) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, apperrors.InvalidInput("invalid order status: %d", status)
	}
	order, err := s.orders.GetByUID(uid)
	if err != nil {
		return nil, err
	}
	if err := s.applyStatus(ctx, order, status); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus transitions the order with the given storage ID. Items
// are immutable after creation, so a status change is the only mutation the
// update path accepts, and it runs through the same transition logic as the
// UID entry points.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status int) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, apperrors.InvalidInput("invalid order status: %d", status)
	}
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.applyStatus(ctx, order, status); err != nil {
		return nil, err
	}
	return order, nil
}

// ReconcileStatus asks the payment gateway for the invoice's status, maps
// it onto the local state machine and applies any resulting transition.
// The gateway is authoritative for payment: PAID confirms the order,
// CANCELLED cancels it, anything else changes nothing. Calling it again
// with an unchanged external status writes nothing.
func (s *OrderService) ReconcileStatus(ctx context.Context, uid string) (*StatusReport, error) {
	order, err := s.orders.GetByUID(uid)
	if err != nil {
		return nil, err
	}

	invoiceStatus, err := s.gateway.CheckStatus(ctx, order.InvoiceID)
	if err != nil {
		return nil, err
	}

	mapped := order.Status
	switch strings.ToUpper(invoiceStatus.Status) {
	case "PAID", "MARKED_AS_PAID":
		mapped = models.FulfilledStatus
	case "CANCELLED":
		mapped = models.StatusCancelled
	}

	if mapped != order.Status {
		if err := s.applyStatus(ctx, order, mapped); err != nil {
			return nil, err
		}
	}

	return &StatusReport{
		OrderID:       order.ID,
		UID:           order.UID,
		Status:        order.Status,
		GatewayStatus: invoiceStatus.Status,
		PaidAmount:    invoiceStatus.PaidAmount,
		Items:         order.Items,
		TotalPrice:    order.TotalPrice,
	}, nil
}

// applyStatus is the single place a status transition happens, so the
// debit-once invariant has exactly one enforcement point regardless of
// which entry point (staff action, reconciliation, update) triggered it.
func (s *OrderService) applyStatus(ctx context.Context, order *models.Order, newStatus int) error {
	if newStatus == order.Status {
		return nil
	}

	// First entry into the fulfilled state debits inventory, as one
	// atomic batch: either every line is debited or none is. The persisted
	// flag keeps the debit idempotent even across a detour through another
	// state and back.
	if newStatus == models.FulfilledStatus && !order.InventoryDebited {
		lines := make([]repositories.StockLine, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, repositories.StockLine{FoodID: item.FoodID, Quantity: item.Quantity})
		}
		if err := s.foods.DecrementStock(lines); err != nil {
			return err
		}
		if err := s.orders.MarkInventoryDebited(order.UID); err != nil {
			return err
		}
		order.InventoryDebited = true
	}

	// Cancelling locally cancels the external invoice best-effort; the
	// local state change is authoritative and proceeds either way.
	if newStatus == models.StatusCancelled && order.Status != models.StatusCancelled && order.InvoiceID != "" {
		if err := s.gateway.CancelInvoice(ctx, order.InvoiceID); err != nil {
			log.Printf("Warning: failed to cancel invoice %s for order %s: %v", order.InvoiceID, order.UID, err)
		}
	}

	if err := s.orders.UpdateStatusByUID(order.UID, newStatus); err != nil {
		return err
	}
	order.Status = newStatus

	if s.events != nil {
		if err := s.events.PublishOrderStatusChanged(rabbitmq.OrderEvent{
			OrderID:    order.ID,
			UID:        order.UID,
			Status:     order.Status,
			TotalPrice: order.TotalPrice,
		}); err != nil {
			log.Printf("Warning: failed to publish status change event for order %s: %v", order.ID, err)
		}
	}
	return nil
}

// DeleteOrder soft-deletes an order. Its UID stays reserved.
func (s *OrderService) DeleteOrder(id string) error {
	return s.orders.Delete(id)
}

// GetMonthlyReport aggregates the orders created in the given month: order
// count, revenue sum and the best-selling food by cumulative quantity.
// Ties go to the first food encountered in creation order.
func (s *OrderService) GetMonthlyReport(month, year int) (*MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.InvalidInput("invalid month: %d", month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	orders, err := s.orders.FindAllBetween(start, end)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{Month: month, Year: year, TotalOrders: len(orders)}
	counts := make(map[string]int)
	var seen []string
	for _, order := range orders {
		report.TotalRevenue += order.TotalPrice
		for _, item := range order.Items {
			if _, ok := counts[item.FoodID]; !ok {
				seen = append(seen, item.FoodID)
			}
			counts[item.FoodID] += item.Quantity
		}
	}

	best := ""
	for _, foodID := range seen {
		if best == "" || counts[foodID] > counts[best] {
			best = foodID
		}
	}
	if best != "" {
		seller := &BestSeller{FoodID: best, Quantity: counts[best]}
		if food, err := s.foods.GetByID(best); err == nil {
			seller.Name = food.Name
		}
		report.BestSeller = seller
	}
	return report, nil
}

// usdValue quotes a VND price in USD at the configured fixed rate, rounded
// to 2 decimal places.
func (s *OrderService) usdValue(vnd int64) string {
	return decimal.NewFromInt(vnd).
		DivRound(decimal.NewFromInt(s.cfg.VNDToUSDRate), 2).
		StringFixed(2)
}
