package services

import (
	"fmt"
	"strconv"
	"sync"

	"tiemcom/internal/apperrors"
	"tiemcom/internal/repositories"
)

// uidSpace is the number of assignable order UIDs ("000".."999"). A hard
// 1000-order capacity baked into the UID scheme.
const uidSpace = 1000

// UIDAllocator hands out the next free 3-digit order UID. Allocation is
// serialized by a mutex; the storage unique index on uid is the last line
// of defense against a UID handed out twice across processes.
type UIDAllocator struct {
	orders repositories.OrderRepository
	mu     sync.Mutex
}

// NewUIDAllocator creates a UIDAllocator backed by the given repository.
func NewUIDAllocator(orders repositories.OrderRepository) *UIDAllocator {
	return &UIDAllocator{orders: orders}
}

// Next returns the first free UID at or after the cursor, where the cursor
// is one past the most recently created order's UID. The scan wraps through
// all 1000 slots so gaps left by non-monotonic histories are reused;
// apperrors.ErrUIDExhausted is returned only when every slot is taken.
func (a *UIDAllocator) Next() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cursor := 0
	latest, err := a.orders.GetLatest()
	if err != nil {
		return "", err
	}
	if latest != nil {
		if n, err := strconv.Atoi(latest.UID); err == nil && n >= 0 && n < uidSpace {
			cursor = (n + 1) % uidSpace
		}
	}

	for i := 0; i < uidSpace; i++ {
		uid := fmt.Sprintf("%03d", (cursor+i)%uidSpace)
		taken, err := a.orders.UIDExists(uid)
		if err != nil {
			return "", err
		}
		if !taken {
			return uid, nil
		}
	}
	return "", apperrors.ErrUIDExhausted
}
