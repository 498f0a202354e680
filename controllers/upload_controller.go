package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomas-aguilar/mesa-pos-api/config"
	"github.com/tomas-aguilar/mesa-pos-api/models"
	"github.com/tomas-aguilar/mesa-pos-api/services"
	"github.com/tomas-aguilar/mesa-pos-api/utils"
)

// UploadMenuItemImage handles POST /api/v1/menu/:id/image - uploads a
// photo for a menu item (managers only). Replaces and deletes any
// previous photo.
func UploadMenuItemImage(c *gin.Context) {
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

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "An image file is required in the 'image' form field",
			},
		})
		return
	}

	imageService := services.GetImageService()
	imageKey, err := imageService.UploadImage(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    uploadErr.Code,
					"message": uploadErr.Message,
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to upload image",
			},
		})
		return
	}

	previousKey := item.ImageS3Key
	if err := db.Model(&item).Update("image_s3_key", imageKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image reference",
			},
		})
		return
	}

	// Best-effort cleanup of the replaced photo
	if previousKey != nil && *previousKey != "" {
		_ = imageService.DeleteImage(*previousKey)
	}

	item.ImageS3Key = &imageKey
	hydrateImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}
