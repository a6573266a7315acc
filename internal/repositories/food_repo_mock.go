package repositories

import (
	"sync"

	"github.com/google/uuid"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/models"
)

// MockFoodRepository is an in-memory implementation of FoodRepository.
type MockFoodRepository struct {
	foods map[string]models.Food
	mu    sync.RWMutex
}

// NewMockFoodRepository creates a new instance of MockFoodRepository.
func NewMockFoodRepository() *MockFoodRepository {
	return &MockFoodRepository{
		foods: make(map[string]models.Food),
	}
}

// GetAll returns all foods.
func (r *MockFoodRepository) GetAll() ([]models.Food, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	foodList := make([]models.Food, 0, len(r.foods))
	for _, f := range r.foods {
		foodList = append(foodList, f)
	}
	return foodList, nil
}

// GetByID returns a food by its ID.
func (r *MockFoodRepository) GetByID(id string) (*models.Food, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	food, ok := r.foods[id]
	if !ok {
		return nil, apperrors.NotFound("food with ID %s not found", id)
	}
	return &food, nil
}

// Create adds a new food.
func (r *MockFoodRepository) Create(food *models.Food) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if food.ID == "" {
		food.ID = uuid.New().String()
	}
	r.foods[food.ID] = *food
	return nil
}

// Update modifies an existing food.
func (r *MockFoodRepository) Update(food *models.Food) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.foods[food.ID]
	if !ok {
		return apperrors.NotFound("food with ID %s not found for update", food.ID)
	}
	r.foods[food.ID] = *food
	return nil
}

// Delete removes a food by its ID.
func (r *MockFoodRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.foods[id]
	if !ok {
		return apperrors.NotFound("food with ID %s not found for deletion", id)
	}
	delete(r.foods, id)
	return nil
}

// DecrementStock verifies every line before writing any, mirroring the
// all-or-nothing transaction of the GORM implementation.
func (r *MockFoodRepository) DecrementStock(lines []StockLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range lines {
		food, ok := r.foods[line.FoodID]
		if !ok {
			return apperrors.NotFound("food with ID %s not found", line.FoodID)
		}
		if food.Quantity < line.Quantity {
			return apperrors.InsufficientStock(food.Name)
		}
	}
	for _, line := range lines {
		food := r.foods[line.FoodID]
		food.Quantity -= line.Quantity
		r.foods[line.FoodID] = food
	}
	return nil
}
