package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tomas-aguilar/mesa-pos-api/config"
	"github.com/tomas-aguilar/mesa-pos-api/models"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// ListMyNotifications handles GET /api/v1/notifications - lists the
// caller's notifications, newest first, with limit/offset pagination
func ListMyNotifications(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "limit must be a positive integer",
				},
			})
			return
		}
		limit = parsed
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "offset must be a non-negative integer",
				},
			})
			return
		}
		offset = parsed
	}

	db := config.GetDB()

	var total int64
	if err := db.Model(&models.Notification{}).Where("staff_id = ?", staff.ID).
		Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count notifications",
			},
		})
		return
	}

	var notifications []models.Notification
	if err := db.Where("staff_id = ?", staff.ID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch notifications",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notifications,
		"pagination": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}
