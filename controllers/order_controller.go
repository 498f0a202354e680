package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomas-aguilar/mesa-pos-api/config"
	"github.com/tomas-aguilar/mesa-pos-api/middleware"
	"github.com/tomas-aguilar/mesa-pos-api/models"
	"github.com/tomas-aguilar/mesa-pos-api/services"
)

// UpdateOrderStatusRequest represents the request body for changing an order's status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateItemStatusRequest represents the request body for changing an item's status
type UpdateItemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateItemQuantityRequest represents the request body for changing an item's quantity
type UpdateItemQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// UpdateOrderUrgencyRequest represents the request body for toggling order urgency
type UpdateOrderUrgencyRequest struct {
	IsUrgent *bool `json:"is_urgent" binding:"required"`
}

// currentStaff resolves the authenticated caller to a staff row. On
// failure it writes the error response and returns false.
func currentStaff(c *gin.Context) (*models.Staff, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}

	db := config.GetDB()
	var staff models.Staff
	if err := db.Where("auth0_id = ?", auth0ID).First(&staff).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STAFF_NOT_FOUND",
				"message": "Staff profile not found. Please register first.",
			},
		})
		return nil, false
	}

	return &staff, true
}

// orderIDParam parses the :id URL parameter. On failure it writes the
// error response and returns false.
func orderIDParam(c *gin.Context) (uint, bool) {
	return uintParam(c, "id", "Order ID must be a positive integer")
}

func uintParam(c *gin.Context, name, message string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": message,
			},
		})
		return 0, false
	}
	return uint(id), true
}

// respondStoreError maps order store errors to HTTP error envelopes
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "ORDER_NOT_FOUND", "message": "Order not found"},
		})
	case errors.Is(err, services.ErrOrderItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "ORDER_ITEM_NOT_FOUND", "message": "Order item not found"},
		})
	case errors.Is(err, services.ErrMenuItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "MENU_ITEM_NOT_FOUND", "message": "Referenced menu item not found"},
		})
	case errors.Is(err, services.ErrMenuOptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "MENU_OPTION_NOT_FOUND", "message": "Referenced menu option not found"},
		})
	case errors.Is(err, services.ErrOptionChoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "OPTION_CHOICE_NOT_FOUND", "message": "Referenced option choice not found"},
		})
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidOrderStatus),
		errors.Is(err, services.ErrInvalidItemStatus),
		errors.Is(err, services.ErrEmptyOrder):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"code": "VALIDATION_ERROR", "message": err.Error()},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   gin.H{"code": "DATABASE_ERROR", "message": "Operation failed"},
		})
	}
}

// CreateOrder handles POST /api/v1/orders - places a new order
func CreateOrder(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
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

	order, err := services.GetOrderService().CreateOrder(req, staff)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists orders, optionally
// filtered by status and/or a trailing "recent" window in minutes
func ListOrders(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	status := c.Query("status")

	var recentWithin time.Duration
	if raw := c.Query("recent_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "recent_minutes must be a positive integer",
				},
			})
			return
		}
		recentWithin = time.Duration(minutes) * time.Minute
	}

	orders, err := services.GetOrderService().ListOrders(status, recentWithin)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id - fetches one hydrated order
func GetOrder(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetOrder(orderID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status
func UpdateOrderStatus(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
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

	order, err := services.GetOrderService().UpdateOrderStatus(orderID, req.Status)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateItemStatus handles PATCH /api/v1/orders/:id/items/:itemId/status
func UpdateItemStatus(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	itemID, ok := uintParam(c, "itemId", "Item ID must be a positive integer")
	if !ok {
		return
	}

	var req UpdateItemStatusRequest
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

	item, order, err := services.GetOrderService().UpdateItemStatus(orderID, itemID, req.Status)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"item":  item,
			"order": order,
		},
	})
}

// UpdateItemQuantity handles PATCH /api/v1/orders/:id/items/:itemId/quantity
func UpdateItemQuantity(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	itemID, ok := uintParam(c, "itemId", "Item ID must be a positive integer")
	if !ok {
		return
	}

	var req UpdateItemQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Quantity must be a positive integer",
				"details": err.Error(),
			},
		})
		return
	}

	item, order, err := services.GetOrderService().UpdateItemQuantity(orderID, itemID, req.Quantity)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"item":  item,
			"order": order,
		},
	})
}

// UpdateOrderUrgency handles PATCH /api/v1/orders/:id/urgency
func UpdateOrderUrgency(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdateOrderUrgencyRequest
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

	order, err := services.GetOrderService().UpdateOrderUrgency(orderID, *req.IsUrgent)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func DeleteOrder(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := services.GetOrderService().DeleteOrder(orderID); err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": true},
	})
}
