package repositories

import (
	"time"

	"tiemcom/internal/models"
)

// OrderRepository defines the interface for order data access. Absence is
// reported as an apperrors not-found value, never a raw driver error.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByUID(uid string) (*models.Order, error)
	// GetLatest returns the most recently created order, or nil when the
	// store is empty. Soft-deleted orders are included: the UID allocator
	// seeds its cursor from it and deleted orders still hold their UID.
	GetLatest() (*models.Order, error)
	// UIDExists reports whether any order, soft-deleted or not, holds uid.
	UIDExists(uid string) (bool, error)
	GetDelivering() ([]models.Order, error)
	FindAllBetween(start, end time.Time) ([]models.Order, error)
	// Create persists a new order. A duplicate UID surfaces as
	// apperrors.ErrConflict so the allocator can retry.
	Create(order *models.Order) error
	UpdateStatus(id string, status int) error
	UpdateStatusByUID(uid string, status int) error
	// MarkInventoryDebited flips the order's debited flag; it never flips
	// back.
	MarkInventoryDebited(uid string) error
	Delete(id string) error
}
