package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes. The static paths go first so
// Fiber does not swallow them with the :id parameter.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/order")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/delivering", h.HandleGetDeliveringOrders)
	orderRoutes.Get("/report", h.HandleGetMonthlyReport)
	orderRoutes.Get("/status/:UID", h.HandleCheckOrderStatus)
	orderRoutes.Post("/status/:UID", h.HandleUpdateOrderStatus)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id", h.HandleUpdateOrder)
	orderRoutes.Delete("/:id", h.HandleDeleteOrder)
}

// HandleGetOrders retrieves all orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetAllOrders()
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Get all orders", orders)
}

// HandleCreateOrder creates a new order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.InvalidInput("invalid order format"))
	}
	if err := validate.Struct(req); err != nil {
		return respondError(c, apperrors.InvalidInput("invalid order format: %v", err))
	}

	order, err := h.service.CreateOrder(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, "Successfully! Create order", order)
}

// HandleGetDeliveringOrders retrieves orders currently being delivered.
func (h *OrderHandler) HandleGetDeliveringOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetDeliveringOrders()
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Get delivering order", orders)
}

// HandleGetMonthlyReport aggregates orders for the queried month
// (defaulting to the current one).
func (h *OrderHandler) HandleGetMonthlyReport(c *fiber.Ctx) error {
	now := time.Now()
	month := c.QueryInt("month", int(now.Month()))
	year := c.QueryInt("year", now.Year())

	report, err := h.service.GetMonthlyReport(month, year)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Get monthly report", report)
}

// HandleCheckOrderStatus reconciles an order against the payment gateway
// and returns the reconciliation report.
func (h *OrderHandler) HandleCheckOrderStatus(c *fiber.Ctx) error {
	report, err := h.service.ReconcileStatus(c.UserContext(), c.Params("UID"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully checked order status", report)
}

// HandleUpdateOrderStatus applies a staff-driven status transition by UID.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var body struct {
		Status int `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, apperrors.InvalidInput("invalid status payload"))
	}
	if body.Status == 0 {
		return respondError(c, apperrors.InvalidInput("status is required"))
	}

	order, err := h.service.SetStatusByUID(c.UserContext(), c.Params("UID"), body.Status)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully updated order status", order)
}

// HandleGetOrderByID retrieves a single order by its storage ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrderByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Get order by id", order)
}

// HandleUpdateOrder updates an order by storage ID. Items are immutable, so
// the only accepted change is a status transition.
func (h *OrderHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	var body struct {
		Status int `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, apperrors.InvalidInput("invalid order payload"))
	}
	if body.Status == 0 {
		return respondError(c, apperrors.InvalidInput("status is required"))
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), c.Params("id"), body.Status)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Update order", order)
}

// HandleDeleteOrder soft-deletes an order.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteOrder(id); err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Delete order", fiber.Map{"id": id})
}
