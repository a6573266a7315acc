package repositories

import (
	"tiemcom/internal/models"
)

// StockLine pairs a food with the quantity to remove from stock.
type StockLine struct {
	FoodID   string
	Quantity int
}

// FoodRepository defines the interface for food data access.
type FoodRepository interface {
	GetAll() ([]models.Food, error)
	GetByID(id string) (*models.Food, error)
	Create(food *models.Food) error
	Update(food *models.Food) error
	Delete(id string) error
	// DecrementStock removes the given quantities as one atomic unit: if
	// any line would drive a food's quantity below zero the whole batch is
	// rejected and no quantity changes.
	DecrementStock(lines []StockLine) error
}
