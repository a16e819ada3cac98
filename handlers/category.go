package handlers

import (
	"net/http"
	"strings"

	"giftshop-backend/models"
	"giftshop-backend/seo"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	DB *gorm.DB
}

type categoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id" binding:"omitempty,uuid"`
	SortOrder   int     `json:"sort_order"`
}

// Navigation returns the top-level categories with their sub-categories, in
// menu order.
func (h *CategoryHandler) Navigation(c *gin.Context) {
	var categories []models.Category
	err := h.DB.Where("parent_id IS NULL").
		Preload("Subcategories", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		}).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	var categories []models.Category
	if err := h.DB.Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// resolveParent checks that parentID names a top-level category. Nesting is
// one level deep.
func (h *CategoryHandler) resolveParent(c *gin.Context, parentID *string, self uuid.UUID) (*uuid.UUID, bool) {
	if parentID == nil || *parentID == "" {
		return nil, true
	}
	id := uuid.MustParse(*parentID)
	if id == self {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A category cannot be its own parent"})
		return nil, false
	}

	var parent models.Category
	if err := h.DB.Where("id = ?", id).First(&parent).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parent category not found"})
		return nil, false
	}
	if parent.ParentID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sub-categories cannot have children"})
		return nil, false
	}
	return &id, true
}

func (h *CategoryHandler) slugTaken(slug string, except uuid.UUID) bool {
	var count int64
	h.DB.Model(&models.Category{}).Where("slug = ? AND id <> ?", slug, except).Count(&count)
	return count > 0
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	category := models.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Slug:        seo.Slugify(req.Name),
		Icon:        req.Icon,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if category.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name must contain letters or digits"})
		return
	}
	if h.slugTaken(category.Slug, category.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "A category with this name already exists"})
		return
	}

	parentID, ok := h.resolveParent(c, req.ParentID, category.ID)
	if !ok {
		return
	}
	category.ParentID = parentID

	if err := h.DB.Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var category models.Category
	if err := h.DB.Where("id = ?", c.Param("id")).First(&category).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	slug := seo.Slugify(req.Name)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name must contain letters or digits"})
		return
	}
	if h.slugTaken(slug, category.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "A category with this name already exists"})
		return
	}

	parentID, ok := h.resolveParent(c, req.ParentID, category.ID)
	if !ok {
		return
	}
	if parentID != nil {
		var children int64
		h.DB.Model(&models.Category{}).Where("parent_id = ?", category.ID).Count(&children)
		if children > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A category with sub-categories cannot become a sub-category"})
			return
		}
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Slug = slug
	category.Icon = req.Icon
	category.Description = req.Description
	category.SortOrder = req.SortOrder
	category.ParentID = parentID

	if err := h.DB.Save(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")

	var productCount int64
	if err := h.DB.Model(&models.Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check category dependencies"})
		return
	}
	if productCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "Cannot delete category with associated products",
			"message":       "Please reassign or delete the associated products first",
			"product_count": productCount,
		})
		return
	}

	var subcategoryCount int64
	if err := h.DB.Model(&models.Category{}).Where("parent_id = ?", id).Count(&subcategoryCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check category dependencies"})
		return
	}
	if subcategoryCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Cannot delete category with subcategories",
			"message":           "Please delete or reassign subcategories first",
			"subcategory_count": subcategoryCount,
		})
		return
	}

	result := h.DB.Delete(&models.Category{}, "id = ?", id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
