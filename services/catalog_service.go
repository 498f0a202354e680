package services

import (
	"errors"

	"github.com/tomas-aguilar/mesa-pos-api/models"
	"gorm.io/gorm"
)

// CatalogService is the read-only view of the menu catalog used when
// building orders. It resolves menu items, option groups and choices
// and validates that a chosen option actually belongs to the item and
// the chosen value to the option group. It never mutates catalog rows.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a catalog service over the given database
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ResolveMenuItem fetches a menu item with its option groups and choices.
// Returns ErrMenuItemNotFound if no such item exists.
func (s *CatalogService) ResolveMenuItem(tx *gorm.DB, menuItemID uint) (*models.MenuItem, error) {
	if tx == nil {
		tx = s.db
	}

	var item models.MenuItem
	if err := tx.Preload("Options.Choices").First(&item, menuItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ResolveSelection validates that the option group belongs to the menu
// item and the choice belongs to the option group, returning both.
// Returns ErrMenuOptionNotFound or ErrOptionChoiceNotFound on a bad
// reference.
func (s *CatalogService) ResolveSelection(item *models.MenuItem, menuOptionID, optionChoiceID uint) (*models.MenuOption, *models.OptionChoice, error) {
	for i := range item.Options {
		opt := &item.Options[i]
		if opt.ID != menuOptionID {
			continue
		}
		for j := range opt.Choices {
			if opt.Choices[j].ID == optionChoiceID {
				return opt, &opt.Choices[j], nil
			}
		}
		return nil, nil, ErrOptionChoiceNotFound
	}
	return nil, nil, ErrMenuOptionNotFound
}
