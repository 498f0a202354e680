package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomas-aguilar/mesa-pos-api/config"
	"github.com/tomas-aguilar/mesa-pos-api/models"
	"github.com/tomas-aguilar/mesa-pos-api/services"
)

// OptionChoiceRequest represents one choice inside an option group
type OptionChoiceRequest struct {
	Name       string  `json:"name" binding:"required"`
	ExtraPrice float64 `json:"extra_price" binding:"gte=0"`
}

// MenuOptionRequest represents one option group on a menu item
type MenuOptionRequest struct {
	Name    string                `json:"name" binding:"required"`
	Choices []OptionChoiceRequest `json:"choices" binding:"required,min=1,dive"`
}

// CreateMenuItemRequest represents the request body for creating a menu item
type CreateMenuItemRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Price       float64             `json:"price" binding:"required,gt=0"`
	Category    string              `json:"category"`
	Options     []MenuOptionRequest `json:"options" binding:"dive"`
}

// UpdateMenuItemRequest represents the request body for updating a menu item
type UpdateMenuItemRequest struct {
	Name        string   `json:"name" binding:"omitempty"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Category    *string  `json:"category"`
	Available   *bool    `json:"available"`
}

// hydrateImageURL fills the computed presigned URL for a menu item photo
func hydrateImageURL(item *models.MenuItem) {
	if item.ImageS3Key == nil || *item.ImageS3Key == "" {
		return
	}
	imageService := services.GetImageService()
	if imageService == nil {
		return
	}
	if url, err := imageService.GetImageURL(*item.ImageS3Key); err == nil && url != "" {
		item.ImageURL = &url
	}
}

// CreateMenuItem handles POST /api/v1/menu - creates a menu item with
// its option groups and choices (managers only)
func CreateMenuItem(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	item := models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Available:   true,
	}
	for _, optReq := range req.Options {
		option := models.MenuOption{Name: optReq.Name}
		for _, choiceReq := range optReq.Choices {
			option.Choices = append(option.Choices, models.OptionChoice{
				Name:       choiceReq.Name,
				ExtraPrice: choiceReq.ExtraPrice,
			})
		}
		item.Options = append(item.Options, option)
	}

	db := config.GetDB()
	if err := db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create menu item",
			},
		})
		return
	}

	if err := db.Preload("Options.Choices").First(&item, item.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load menu item details",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// ListMenu handles GET /api/v1/menu - lists menu items with their
// option groups, optionally filtered by category
func ListMenu(c *gin.Context) {
	db := config.GetDB()

	query := db.Preload("Options.Choices").Order("category ASC, name ASC")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("available") == "true" {
		query = query.Where("available = ?", true)
	}

	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch menu",
			},
		})
		return
	}

	for i := range items {
		hydrateImageURL(&items[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
	})
}

// GetMenuItem handles GET /api/v1/menu/:id
func GetMenuItem(c *gin.Context) {
	itemID, ok := uintParam(c, "id", "Menu item ID must be a positive integer")
	if !ok {
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.Preload("Options.Choices").First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	hydrateImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// UpdateMenuItem handles PATCH /api/v1/menu/:id (managers only)
func UpdateMenuItem(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	itemID, ok := uintParam(c, "id", "Menu item ID must be a positive integer")
	if !ok {
		return
	}

	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Available != nil {
		updates["available"] = *req.Available
	}

	if len(updates) > 0 {
		if err := db.Model(&item).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to update menu item",
				},
			})
			return
		}
	}

	if err := db.Preload("Options.Choices").First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load menu item details",
			},
		})
		return
	}

	hydrateImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// DeleteMenuItem handles DELETE /api/v1/menu/:id (managers only).
// Catalog rows are soft-deleted so existing order items keep their
// menu item reference.
func DeleteMenuItem(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	itemID, ok := uintParam(c, "id", "Menu item ID must be a positive integer")
	if !ok {
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	if err := db.Delete(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete menu item",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": true},
	})
}
