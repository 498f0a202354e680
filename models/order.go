package models

import (
	"time"
)

// Order statuses
const (
	OrderStatusActive    = "ACTIVE"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Order item statuses
const (
	ItemStatusPreparing = "PREPARING"
	ItemStatusCompleted = "COMPLETED"
	ItemStatusCancelled = "CANCELLED"
)

// IsValidOrderStatus reports whether status is a known order status
func IsValidOrderStatus(status string) bool {
	return status == OrderStatusActive || status == OrderStatusCompleted || status == OrderStatusCancelled
}

// IsValidItemStatus reports whether status is a known order item status
func IsValidItemStatus(status string) bool {
	return status == ItemStatusPreparing || status == ItemStatusCompleted || status == ItemStatusCancelled
}

// Order represents a customer's placed order. Its status and total are
// derived from its items on every mutation; orders are hard-deleted
// (with all dependent rows) only by an explicit staff delete action.
type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Total        float64     `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	Status       string      `gorm:"not null;default:'ACTIVE'" json:"status"` // ACTIVE, COMPLETED, CANCELLED
	TableNumber  *int        `json:"table_number"`
	CustomerName *string     `json:"customer_name"`
	IsUrgent     bool        `gorm:"not null;default:false" json:"is_urgent"`
	StaffID      uint        `gorm:"not null;index" json:"staff_id"` // staff member who placed the order
	Staff        Staff       `gorm:"foreignKey:StaffID" json:"staff"`
	Items        []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem represents one line of an order: a menu item with quantity,
// optional notes, selected options and its own preparation status
type OrderItem struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	OrderID         uint             `gorm:"not null;index" json:"order_id"`
	MenuItemID      uint             `gorm:"not null;index" json:"menu_item_id"`
	MenuItem        MenuItem         `gorm:"foreignKey:MenuItemID" json:"menu_item"`
	Quantity        int              `gorm:"not null;check:quantity > 0" json:"quantity"`
	Notes           string           `gorm:"type:text" json:"notes"`
	Status          string           `gorm:"not null;default:'PREPARING'" json:"status"` // PREPARING, COMPLETED, CANCELLED
	SelectedOptions []SelectedOption `gorm:"foreignKey:OrderItemID" json:"selected_options"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// SelectedOption pairs a chosen option group with one of its choices,
// capturing the price surcharge at order time
type SelectedOption struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrderItemID    uint         `gorm:"not null;index" json:"order_item_id"`
	MenuOptionID   uint         `gorm:"not null" json:"menu_option_id"`
	MenuOption     MenuOption   `gorm:"foreignKey:MenuOptionID" json:"menu_option"`
	OptionChoiceID uint         `gorm:"not null" json:"option_choice_id"`
	OptionChoice   OptionChoice `gorm:"foreignKey:OptionChoiceID" json:"option_choice"`
	ExtraPrice     float64      `gorm:"type:decimal(10,2);not null;default:0" json:"extra_price"`
	CreatedAt      time.Time    `json:"created_at"`
}

// TableName specifies the table name for the SelectedOption model
func (SelectedOption) TableName() string {
	return "selected_options"
}
