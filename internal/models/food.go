package models

import "gorm.io/gorm"

// Food types.
const (
	TypeFood  = 0
	TypeDrink = 1
)

// Food represents a dish or drink on the menu. Price is in VND (whole
// units). Quantity is the stock on hand and never goes negative; it is
// decremented only by the order lifecycle engine on confirmed payment.
type Food struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Price      int64  `json:"price" validate:"required,gt=0"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
	ImageURL   string `json:"image_url" validate:"omitempty,url"`
	Type       int    `json:"type" validate:"oneof=0 1"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
