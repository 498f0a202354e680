package models

import (
	"time"
)

// Notification types
const (
	NotificationNewOrder     = "NEW_ORDER"
	NotificationOrderUpdated = "ORDER_UPDATED"
	NotificationOrderDeleted = "ORDER_DELETED"
)

// Notification is one durable record of an order mutation for one staff
// member. Rows are immutable after creation and read back through each
// staff member's notification feed.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"not null" json:"type"` // NEW_ORDER, ORDER_UPDATED, ORDER_DELETED
	Content   string    `gorm:"not null" json:"content"`
	OrderID   *uint     `gorm:"index" json:"order_id"`
	StaffID   uint      `gorm:"not null;index" json:"staff_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
