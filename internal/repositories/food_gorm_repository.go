package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/models"
)

// GORMFoodRepository is a GORM implementation of FoodRepository.
type GORMFoodRepository struct {
	db *gorm.DB
}

// NewGORMFoodRepository creates a new instance of GORMFoodRepository.
func NewGORMFoodRepository(db *gorm.DB) *GORMFoodRepository {
	return &GORMFoodRepository{
		db: db,
	}
}

// GetAll retrieves all foods from the database.
func (r *GORMFoodRepository) GetAll() ([]models.Food, error) {
	var foods []models.Food
	if err := r.db.Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("failed to get all foods: %w", err)
	}
	return foods, nil
}

// GetByID retrieves a single food by its ID from the database.
func (r *GORMFoodRepository) GetByID(id string) (*models.Food, error) {
	var food models.Food
	if err := r.db.First(&food, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("food with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get food by ID %s: %w", id, err)
	}
	return &food, nil
}

// Create creates a new food in the database.
func (r *GORMFoodRepository) Create(food *models.Food) error {
	if food.ID == "" {
		food.ID = uuid.New().String()
	}
	if err := r.db.Create(food).Error; err != nil {
		return fmt.Errorf("failed to create food: %w", err)
	}
	return nil
}

// Update updates an existing food in the database.
func (r *GORMFoodRepository) Update(food *models.Food) error {
	res := r.db.Save(food) // Save will update all fields, including zero values
	if res.Error != nil {
		return fmt.Errorf("failed to update food: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("food with ID %s not found for update", food.ID)
	}
	return nil
}

// Delete soft-deletes a food by its ID.
func (r *GORMFoodRepository) Delete(id string) error {
	res := r.db.Delete(&models.Food{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete food: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("food with ID %s not found for deletion", id)
	}
	return nil
}

// DecrementStock applies every line as a single transaction of conditional
// updates. The quantity >= requested precondition sits inside each UPDATE,
// so concurrent debits on the same food cannot interleave a stale read.
func (r *GORMFoodRepository) DecrementStock(lines []StockLine) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			res := tx.Model(&models.Food{}).
				Where("id = ? AND quantity >= ?", line.FoodID, line.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", line.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to decrement stock for food %s: %w", line.FoodID, res.Error)
			}
			if res.RowsAffected == 0 {
				// Either the food is gone or the stock is short; look it
				// up to report which. Returning rolls the whole batch back.
				var food models.Food
				if err := tx.First(&food, "id = ?", line.FoodID).Error; err != nil {
					if err == gorm.ErrRecordNotFound {
						return apperrors.NotFound("food with ID %s not found", line.FoodID)
					}
					return fmt.Errorf("failed to get food by ID %s: %w", line.FoodID, err)
				}
				return apperrors.InsufficientStock(food.Name)
			}
		}
		return nil
	})
}
