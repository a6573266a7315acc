package services

import (
	"tiemcom/internal/models"
	"tiemcom/internal/repositories"
)

// FoodService handles catalog logic for foods. Stock changes outside
// direct catalog edits go through the order lifecycle engine only.
type FoodService struct {
	repo repositories.FoodRepository
}

// NewFoodService creates a new FoodService.
func NewFoodService(repo repositories.FoodRepository) *FoodService {
	return &FoodService{
		repo: repo,
	}
}

// GetAllFood retrieves all foods.
func (s *FoodService) GetAllFood() ([]models.Food, error) {
	return s.repo.GetAll()
}

// GetFoodByID retrieves a single food by its ID.
func (s *FoodService) GetFoodByID(id string) (*models.Food, error) {
	return s.repo.GetByID(id)
}

// CreateFood creates a new food.
func (s *FoodService) CreateFood(food *models.Food) error {
	return s.repo.Create(food)
}

// UpdateFood updates an existing food. Fields left at their zero value in
// the patch keep their stored values.
func (s *FoodService) UpdateFood(id string, patch *models.Food) (*models.Food, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != "" {
		existing.Name = patch.Name
	}
	if patch.Price > 0 {
		existing.Price = patch.Price
	}
	if patch.Quantity > 0 {
		existing.Quantity = patch.Quantity
	}
	if patch.ImageURL != "" {
		existing.ImageURL = patch.ImageURL
	}
	if patch.Type == models.TypeDrink {
		existing.Type = models.TypeDrink
	}

	if err := s.repo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteFood deletes a food by its ID.
func (s *FoodService) DeleteFood(id string) error {
	return s.repo.Delete(id)
}
