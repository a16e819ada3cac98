package handlers

import (
	"errors"
	"net/http"
	"strings"

	"giftshop-backend/firebase"
	"giftshop-backend/models"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func storageUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image storage is not configured"})
}

// AddImage attaches an image to a product. The image is either uploaded as
// multipart field "image" or imported from the JSON field "image_url".
func (h *ProductHandler) AddImage(c *gin.Context) {
	if h.Storage == nil {
		storageUnavailable(c)
		return
	}

	var product models.Product
	if err := h.DB.Where("id = ?", c.Param("id")).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var (
		imageURL    string
		isThumbnail bool
		err         error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, ferr := c.FormFile("image")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
			return
		}
		if verr := utils.ValidateFileUpload(fileHeader); verr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		file, ferr := fileHeader.Open()
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		defer file.Close()

		isThumbnail = c.PostForm("is_thumbnail") == "true"
		imageURL, err = h.Storage.Upload(c.Request.Context(), firebase.FolderProducts, file,
			fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			h.Logger.Error("image upload failed", zap.String("product_id", product.ID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
			return
		}
	} else {
		var req struct {
			ImageURL    string `json:"image_url" binding:"required,url"`
			IsThumbnail bool   `json:"is_thumbnail"`
		}
		if berr := c.ShouldBindJSON(&req); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(berr)})
			return
		}
		isThumbnail = req.IsThumbnail
		imageURL, err = h.Storage.ImportFromURL(c.Request.Context(), firebase.FolderProducts, req.ImageURL)
		if err != nil {
			h.Logger.Warn("image import failed", zap.String("url", req.ImageURL), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to import image: " + err.Error()})
			return
		}
	}

	var count int64
	h.DB.Model(&models.ProductImage{}).Where("product_id = ?", product.ID).Count(&count)

	image := models.ProductImage{
		ProductID:   product.ID,
		ImageURL:    imageURL,
		IsThumbnail: isThumbnail || count == 0,
		SortOrder:   int(count),
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if image.IsThumbnail {
			if err := tx.Model(&models.ProductImage{}).Where("product_id = ?", product.ID).
				Update("is_thumbnail", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&image).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
		return
	}

	c.JSON(http.StatusCreated, image)
}

// DeleteImage removes an image from storage and from the product. When the
// thumbnail goes, the next image in sort order takes its place.
func (h *ProductHandler) DeleteImage(c *gin.Context) {
	if h.Storage == nil {
		storageUnavailable(c)
		return
	}

	var image models.ProductImage
	if err := h.DB.Where("id = ? AND product_id = ?", c.Param("imageId"), c.Param("id")).First(&image).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	h.deleteStoredImage(c, image.ImageURL)

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&image).Error; err != nil {
			return err
		}
		if !image.IsThumbnail {
			return nil
		}
		var next models.ProductImage
		err := tx.Where("product_id = ?", image.ProductID).Order("sort_order ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_thumbnail", true).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}
