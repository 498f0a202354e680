package models

import (
	"time"

	"gorm.io/gorm"
)

// MenuItem represents an item on the restaurant menu
type MenuItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Price       float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string         `gorm:"index" json:"category"`
	Available   bool           `gorm:"not null;default:true" json:"available"`
	ImageS3Key  *string        `json:"image_s3_key"`                 // nullable, S3 key for uploaded photo
	ImageURL    *string        `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for photo
	Options     []MenuOption   `gorm:"foreignKey:MenuItemID" json:"options,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// MenuOption represents a configurable option group on a menu item,
// e.g. "Protein" or "Size"
type MenuOption struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	MenuItemID uint           `gorm:"not null;index" json:"menu_item_id"`
	Name       string         `gorm:"not null" json:"name"`
	Choices    []OptionChoice `gorm:"foreignKey:MenuOptionID" json:"choices,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the MenuOption model
func (MenuOption) TableName() string {
	return "menu_options"
}

// OptionChoice represents one selectable value inside an option group,
// e.g. "Beef" inside "Protein", with its price surcharge
type OptionChoice struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MenuOptionID uint      `gorm:"not null;index" json:"menu_option_id"`
	Name         string    `gorm:"not null" json:"name"`
	ExtraPrice   float64   `gorm:"type:decimal(10,2);not null;default:0" json:"extra_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for the OptionChoice model
func (OptionChoice) TableName() string {
	return "option_choices"
}
