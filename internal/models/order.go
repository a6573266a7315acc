package models

import "gorm.io/gorm"

// Order statuses. These integer values appear on the wire exactly as-is.
const (
	StatusPending   = 1 // awaiting payment
	StatusConfirmed = 2 // paid, being delivered
	StatusDelivered = 3
	StatusCancelled = 4
)

// FulfilledStatus is the status whose first entry debits inventory. The
// project's history moved the debit between Confirmed and Delivered; it is
// pinned to Confirmed here so the choice is a one-line change.
const FulfilledStatus = StatusConfirmed

// ValidStatus reports whether s is one of the four order statuses.
func ValidStatus(s int) bool {
	return s >= StatusPending && s <= StatusCancelled
}

// OrderItem is a single line of an order. Price is the food's unit price in
// VND captured at order time. Items are immutable once the order exists.
type OrderItem struct {
	ID       uint   `json:"-" gorm:"primaryKey"`
	OrderID  string `json:"-" gorm:"index;type:varchar(36)"`
	FoodID   string `json:"food_id" gorm:"type:varchar(36)" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Price    int64  `json:"price"`
}

// Order is a customer order. UID is a short 3-digit identifier shown to
// customers and staff, distinct from the storage primary key, assigned once
// at creation and never reassigned. Orders are soft-deleted.
type Order struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UID        string      `json:"uid" gorm:"uniqueIndex;type:varchar(3)"`
	Items      []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	Status     int         `json:"status"`
	TotalPrice int64       `json:"total_price"` // VND
	InvoiceID  string      `json:"invoice_id"`  // opaque id from the payment gateway
	QRURL      string      `json:"qr_url"`
	// InventoryDebited records that stock has been removed for this order.
	// It flips exactly once, on first entry into FulfilledStatus, and is
	// what makes the debit idempotent across repeated transitions.
	InventoryDebited bool `json:"-"`
	gorm.Model             // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
