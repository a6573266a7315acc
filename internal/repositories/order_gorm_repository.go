package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
// The gorm.DB must be opened with TranslateError so duplicate-key writes
// surface as gorm.ErrDuplicatedKey.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetAll retrieves all orders with their items.
func (r *GORMOrderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").Order("created_at").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("order with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByUID retrieves a single order by its 3-digit UID.
func (r *GORMOrderRepository) GetByUID(uid string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "uid = ?", uid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("order with UID %s not found", uid)
		}
		return nil, fmt.Errorf("failed to get order by UID %s: %w", uid, err)
	}
	return &order, nil
}

// GetLatest returns the most recently created order including soft-deleted
// ones, or nil when the store is empty.
func (r *GORMOrderRepository) GetLatest() (*models.Order, error) {
	var order models.Order
	err := r.db.Unscoped().Order("created_at DESC").First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest order: %w", err)
	}
	return &order, nil
}

// UIDExists reports whether any order, soft-deleted or not, holds uid.
func (r *GORMOrderRepository) UIDExists(uid string) (bool, error) {
	var count int64
	if err := r.db.Unscoped().Model(&models.Order{}).Where("uid = ?", uid).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check UID %s: %w", uid, err)
	}
	return count > 0, nil
}

// GetDelivering retrieves orders currently being delivered.
func (r *GORMOrderRepository) GetDelivering() ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").Where("status = ?", models.StatusConfirmed).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get delivering orders: %w", err)
	}
	return orders, nil
}

// FindAllBetween retrieves orders created in [start, end), oldest first.
func (r *GORMOrderRepository) FindAllBetween(start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get orders between %s and %s: %w", start, end, err)
	}
	return orders, nil
}

// Create persists a new order and its items. The unique index on uid is the
// last line of defense against a concurrent allocation handing out the same
// UID; a duplicate write comes back as ErrConflict.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateStatus updates the status of the order with the given ID.
func (r *GORMOrderRepository) UpdateStatus(id string, status int) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("order with ID %s not found for status update", id)
	}
	return nil
}

// UpdateStatusByUID updates the status of the order with the given UID.
func (r *GORMOrderRepository) UpdateStatusByUID(uid string, status int) error {
	res := r.db.Model(&models.Order{}).Where("uid = ?", uid).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status for order UID %s: %w", uid, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("order with UID %s not found for status update", uid)
	}
	return nil
}

// MarkInventoryDebited flips the order's inventory_debited flag.
func (r *GORMOrderRepository) MarkInventoryDebited(uid string) error {
	res := r.db.Model(&models.Order{}).Where("uid = ?", uid).Update("inventory_debited", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark inventory debited for order UID %s: %w", uid, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("order with UID %s not found", uid)
	}
	return nil
}

// Delete soft-deletes an order by its ID. The row and its UID remain.
func (r *GORMOrderRepository) Delete(id string) error {
	res := r.db.Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("order with ID %s not found for deletion", id)
	}
	return nil
}
