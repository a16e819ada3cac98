package handlers

import (
	"net/http"
	"strconv"
	"time"

	"giftshop-backend/firebase"
	"giftshop-backend/models"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SliderHandler struct {
	DB      *gorm.DB
	Storage firebase.Storage
	Logger  *zap.Logger
}

// parseFormDate accepts RFC 3339 or a plain date.
func parseFormDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	return nil
}

// GetSliderPosts returns the posts visible right now, in sort order.
func (h *SliderHandler) GetSliderPosts(c *gin.Context) {
	now := time.Now()
	var posts []models.SliderPost
	err := h.DB.Where("is_active = ?", true).
		Where("(start_date IS NULL OR start_date <= ?) AND (end_date IS NULL OR end_date >= ?)", now, now).
		Order("sort_order ASC, created_at DESC").
		Find(&posts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch slider posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slider_posts": posts})
}

// GetAllSliderPosts returns every post, including inactive ones, for admin use.
func (h *SliderHandler) GetAllSliderPosts(c *gin.Context) {
	var posts []models.SliderPost
	if err := h.DB.Order("sort_order ASC, created_at DESC").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch slider posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slider_posts": posts})
}

func (h *SliderHandler) CreateSliderPost(c *gin.Context) {
	if h.Storage == nil {
		storageUnavailable(c)
		return
	}

	post := models.SliderPost{
		ID:       uuid.New(),
		Title:    c.PostForm("title"),
		Subtitle: c.PostForm("subtitle"),
		LinkURL:  c.PostForm("link_url"),
		IsActive: c.DefaultPostForm("is_active", "true") == "true",
	}
	if post.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if raw := c.PostForm("sort_order"); raw != "" {
		order, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sort_order must be a number"})
			return
		}
		post.SortOrder = order
	}
	post.StartDate = parseFormDate(c.PostForm("start_date"))
	post.EndDate = parseFormDate(c.PostForm("end_date"))
	if post.StartDate != nil && post.EndDate != nil && post.EndDate.Before(*post.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be after start_date"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
		return
	}
	if err := utils.ValidateFileUpload(fileHeader); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	imageURL, err := h.Storage.Upload(c.Request.Context(), firebase.FolderSliders, file,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.Logger.Error("slider image upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
		return
	}
	post.Image = imageURL

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if !post.IsActive {
			return tx.Model(&post).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create slider post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *SliderHandler) DeleteSliderPost(c *gin.Context) {
	if h.Storage == nil {
		storageUnavailable(c)
		return
	}

	var post models.SliderPost
	if err := h.DB.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Slider post not found"})
		return
	}

	if objectPath, err := utils.ExtractObjectPath(post.Image, firebase.FolderSliders); err == nil {
		if err := h.Storage.Delete(c.Request.Context(), objectPath); err != nil {
			h.Logger.Warn("failed to delete slider image", zap.String("object", objectPath), zap.Error(err))
		}
	}

	if err := h.DB.Delete(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete slider post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Slider post deleted successfully"})
}
