package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/models"
	"tiemcom/internal/services"
)

// FoodHandler handles HTTP requests for the food catalog.
type FoodHandler struct {
	service *services.FoodService
}

// NewFoodHandler creates a new FoodHandler.
func NewFoodHandler(service *services.FoodService) *FoodHandler {
	return &FoodHandler{
		service: service,
	}
}

// RegisterRoutes registers the food routes.
func (h *FoodHandler) RegisterRoutes(router fiber.Router) {
	foodRoutes := router.Group("/food")
	foodRoutes.Get("/", h.HandleGetFoods)
	foodRoutes.Post("/", h.HandleCreateFood)
	foodRoutes.Get("/:id", h.HandleGetFoodByID)
	foodRoutes.Put("/:id", h.HandleUpdateFood)
	foodRoutes.Delete("/:id", h.HandleDeleteFood)
}

// HandleGetFoods retrieves all foods.
func (h *FoodHandler) HandleGetFoods(c *fiber.Ctx) error {
	foods, err := h.service.GetAllFood()
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Get all food", foods)
}

// HandleCreateFood creates a new food.
func (h *FoodHandler) HandleCreateFood(c *fiber.Ctx) error {
	var food models.Food
	if err := c.BodyParser(&food); err != nil {
		return respondError(c, apperrors.InvalidInput("invalid food payload"))
	}
	if err := validate.Struct(&food); err != nil {
		return respondError(c, apperrors.InvalidInput("invalid food payload: %v", err))
	}

	if err := h.service.CreateFood(&food); err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, "Successfully! Create food", food)
}

// HandleGetFoodByID retrieves a single food by its ID.
func (h *FoodHandler) HandleGetFoodByID(c *fiber.Ctx) error {
	food, err := h.service.GetFoodByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Get food by id", food)
}

// HandleUpdateFood patches a food; omitted fields keep their stored values.
func (h *FoodHandler) HandleUpdateFood(c *fiber.Ctx) error {
	var patch models.Food
	if err := c.BodyParser(&patch); err != nil {
		return respondError(c, apperrors.InvalidInput("invalid food payload"))
	}

	food, err := h.service.UpdateFood(c.Params("id"), &patch)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Update food", food)
}

// HandleDeleteFood soft-deletes a food.
func (h *FoodHandler) HandleDeleteFood(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteFood(id); err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Successfully! Delete food", fiber.Map{"id": id})
}
