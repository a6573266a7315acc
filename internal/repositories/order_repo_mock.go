package repositories

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// Soft deletion is modelled the same way as the GORM implementation: the
// record stays, keeps its UID and drops out of normal reads.
type MockOrderRepository struct {
	orders  map[string]models.Order
	deleted map[string]bool
	created []string // IDs in creation order
	mu      sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:  make(map[string]models.Order),
		deleted: make(map[string]bool),
	}
}

// GetAll returns all live orders in creation order.
func (r *MockOrderRepository) GetAll() ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.created))
	for _, id := range r.created {
		if r.deleted[id] {
			continue
		}
		orderList = append(orderList, r.orders[id])
	}
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok || r.deleted[id] {
		return nil, apperrors.NotFound("order with ID %s not found", id)
	}
	return &order, nil
}

// GetByUID returns an order by its 3-digit UID.
func (r *MockOrderRepository) GetByUID(uid string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.UID == uid && !r.deleted[order.ID] {
			return &order, nil
		}
	}
	return nil, apperrors.NotFound("order with UID %s not found", uid)
}

// GetLatest returns the most recently created order, soft-deleted included,
// or nil when the store is empty.
func (r *MockOrderRepository) GetLatest() (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.created) == 0 {
		return nil, nil
	}
	order := r.orders[r.created[len(r.created)-1]]
	return &order, nil
}

// UIDExists reports whether any order, soft-deleted or not, holds uid.
func (r *MockOrderRepository) UIDExists(uid string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.UID == uid {
			return true, nil
		}
	}
	return false, nil
}

// GetDelivering returns orders currently being delivered.
func (r *MockOrderRepository) GetDelivering() ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []models.Order
	for _, id := range r.created {
		order := r.orders[id]
		if order.Status == models.StatusConfirmed && !r.deleted[id] {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// FindAllBetween returns live orders created in [start, end), oldest first.
func (r *MockOrderRepository) FindAllBetween(start, end time.Time) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []models.Order
	for _, id := range r.created {
		order := r.orders[id]
		if r.deleted[id] {
			continue
		}
		if !order.CreatedAt.Before(start) && order.CreatedAt.Before(end) {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// Create adds a new order, enforcing UID uniqueness like the storage index.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.UID == order.UID {
			return apperrors.ErrConflict
		}
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	r.created = append(r.created, order.ID)
	return nil
}

// UpdateStatus updates the status of the order with the given ID.
func (r *MockOrderRepository) UpdateStatus(id string, status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || r.deleted[id] {
		return apperrors.NotFound("order with ID %s not found for status update", id)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// UpdateStatusByUID updates the status of the order with the given UID.
func (r *MockOrderRepository) UpdateStatusByUID(uid string, status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, order := range r.orders {
		if order.UID == uid && !r.deleted[id] {
			order.Status = status
			order.UpdatedAt = time.Now()
			r.orders[id] = order
			return nil
		}
	}
	return apperrors.NotFound("order with UID %s not found for status update", uid)
}

// MarkInventoryDebited flips the order's debited flag.
func (r *MockOrderRepository) MarkInventoryDebited(uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, order := range r.orders {
		if order.UID == uid && !r.deleted[id] {
			order.InventoryDebited = true
			order.UpdatedAt = time.Now()
			r.orders[id] = order
			return nil
		}
	}
	return apperrors.NotFound("order with UID %s not found", uid)
}

// Delete soft-deletes an order by its ID.
func (r *MockOrderRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok || r.deleted[id] {
		return apperrors.NotFound("order with ID %s not found for deletion", id)
	}
	r.deleted[id] = true
	return nil
}
