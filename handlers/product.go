package handlers

import (
	"net/http"
	"strings"
	"time"

	"giftshop-backend/firebase"
	"giftshop-backend/models"
	"giftshop-backend/seo"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	homepagePerCategory = 8
	searchLimit         = 10
)

type ProductHandler struct {
	DB *gorm.DB
	// Storage is nil when Firebase is not configured; image endpoints then
	// answer 503.
	Storage firebase.Storage
	Site    seo.Site
	Logger  *zap.Logger
}

var productSortColumns = map[string]string{
	"created_at": "created_at",
	"price":      "price",
	"name":       "name",
}

// generateSKU builds a SKU for products created without one.
func generateSKU() string {
	return "MEG-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// categoryTreeIDs returns the category and its direct sub-categories.
func categoryTreeIDs(db *gorm.DB, category models.Category) ([]uuid.UUID, error) {
	ids := []uuid.UUID{category.ID}
	var children []uuid.UUID
	if err := db.Model(&models.Category{}).Where("parent_id = ?", category.ID).Pluck("id", &children).Error; err != nil {
		return nil, err
	}
	return append(ids, children...), nil
}

func activeProducts(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Product{}).Where("is_active = ?", true)
}

// Homepage groups active products under their top-level category slug,
// featured products first.
func (h *ProductHandler) Homepage(c *gin.Context) {
	var categories []models.Category
	if err := h.DB.Where("parent_id IS NULL").Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	grouped := make(map[string][]models.Product, len(categories))
	sections := make([]models.Category, 0, len(categories))
	for _, category := range categories {
		ids, err := categoryTreeIDs(h.DB, category)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}

		var products []models.Product
		err = activeProducts(h.DB).Preload("Images").
			Where("category_id IN ?", ids).
			Order("is_featured DESC, created_at DESC").
			Limit(homepagePerCategory).
			Find(&products).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		if len(products) == 0 {
			continue
		}
		grouped[category.Slug] = products
		sections = append(sections, category)
	}

	c.JSON(http.StatusOK, gin.H{"categories": sections, "products": grouped})
}

// applyListFilters adds the search and price filters shared by the list
// endpoints and returns the requested ORDER BY. It answers 400 itself and
// returns false on bad input.
func applyListFilters(c *gin.Context, query *gorm.DB) (*gorm.DB, string, bool) {
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern, pattern)
	}

	if raw := c.Query("minPrice"); raw != "" {
		minPrice, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid minPrice"})
			return nil, "", false
		}
		query = query.Where("price >= ?", minPrice)
	}
	if raw := c.Query("maxPrice"); raw != "" {
		maxPrice, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maxPrice"})
			return nil, "", false
		}
		query = query.Where("price <= ?", maxPrice)
	}

	column, ok := productSortColumns[c.DefaultQuery("sortBy", "created_at")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sortBy must be one of created_at, price, name"})
		return nil, "", false
	}
	direction := strings.ToLower(c.DefaultQuery("sortOrder", "desc"))
	if direction != "asc" && direction != "desc" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sortOrder must be asc or desc"})
		return nil, "", false
	}
	return query, column + " " + direction, true
}

func (h *ProductHandler) listProducts(c *gin.Context, query *gorm.DB, defaultLimit int) ([]models.Product, gin.H, bool) {
	page, limit := paginationParams(c, defaultLimit)

	query, order, ok := applyListFilters(c, query)
	if !ok {
		return nil, nil, false
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
		return nil, nil, false
	}

	var products []models.Product
	if err := query.Order(order).Preload("Category").Preload("Images").
		Offset((page - 1) * limit).Limit(limit).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return nil, nil, false
	}
	return products, newPagination(page, limit, total, "total_products"), true
}

func (h *ProductHandler) ListAll(c *gin.Context) {
	query := activeProducts(h.DB)

	if slug := c.Query("category"); slug != "" {
		var category models.Category
		if err := h.DB.Where("slug = ?", slug).First(&category).Error; err != nil {
			c.JSON(http.StatusOK, gin.H{"products": []models.Product{}, "pagination": newPagination(1, 20, 0, "total_products")})
			return
		}
		ids, err := categoryTreeIDs(h.DB, category)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		query = query.Where("category_id IN ?", ids)
	}

	products, pagination, ok := h.listProducts(c, query, 20)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "pagination": pagination})
}

func (h *ProductHandler) ByCategorySlug(c *gin.Context) {
	var category models.Category
	if err := h.DB.Preload("Subcategories").Where("slug = ?", c.Param("slug")).First(&category).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	ids, err := categoryTreeIDs(h.DB, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	products, pagination, ok := h.listProducts(c, activeProducts(h.DB).Where("category_id IN ?", ids), 12)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "products": products, "pagination": pagination})
}

// Search backs the search bar: a handful of name or SKU matches.
func (h *ProductHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, gin.H{"products": []models.Product{}})
		return
	}

	pattern := "%" + strings.ToLower(q) + "%"
	var products []models.Product
	err := activeProducts(h.DB).Preload("Images").
		Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern).
		Order("is_featured DESC, name ASC").
		Limit(searchLimit).
		Find(&products).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func seoInput(p models.Product) seo.ProductInput {
	return seo.ProductInput{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category.Name,
		Brand:       p.Brand,
		SKU:         p.SKU,
		Price:       p.CurrentPrice(),
		Stock:       p.Stock,
		ImageURL:    p.ThumbnailURL(),
	}
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	var product models.Product
	if err := h.DB.Preload("Category").Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).Where("id = ? AND is_active = ?", c.Param("id"), true).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	input := seoInput(product)
	c.JSON(http.StatusOK, gin.H{
		"product":         product,
		"current_price":   product.CurrentPrice(),
		"in_stock":        product.InStock(),
		"seo":             seo.ProductMeta(h.Site, input),
		"structured_data": seo.ProductStructuredData(h.Site, input),
		"breadcrumbs":     seo.BreadcrumbStructuredData(seo.ProductBreadcrumbs(h.Site, input)),
	})
}

// ==================== Admin ====================

type productRequest struct {
	Name           string           `json:"name" binding:"required"`
	SKU            string           `json:"sku"`
	Description    string           `json:"description"`
	Price          *decimal.Decimal `json:"price" binding:"required"`
	PromotionPrice *decimal.Decimal `json:"promotion_price"`
	PromotionStart *time.Time       `json:"promotion_start"`
	PromotionEnd   *time.Time       `json:"promotion_end"`
	Stock          *int             `json:"stock" binding:"omitempty,gte=0"`
	Color          string           `json:"color"`
	Brand          string           `json:"brand"`
	Material       string           `json:"material"`
	Weight         string           `json:"weight"`
	Size           string           `json:"size"`
	Specifications string           `json:"specifications"`
	CategoryID     string           `json:"category_id" binding:"required,uuid"`
	IsFeatured     bool             `json:"is_featured"`
	IsActive       *bool            `json:"is_active"`
}

// apply validates req and copies it onto p. It answers 400 itself.
func (h *ProductHandler) apply(c *gin.Context, req productRequest, p *models.Product) bool {
	if !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be greater than 0"})
		return false
	}
	if req.PromotionPrice != nil {
		if !req.PromotionPrice.IsPositive() || req.PromotionPrice.GreaterThanOrEqual(*req.Price) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "promotion_price must be positive and below price"})
			return false
		}
	}
	if req.PromotionStart != nil && req.PromotionEnd != nil && req.PromotionEnd.Before(*req.PromotionStart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "promotion_end must be after promotion_start"})
		return false
	}

	categoryID := uuid.MustParse(req.CategoryID)
	var count int64
	h.DB.Model(&models.Category{}).Where("id = ?", categoryID).Count(&count)
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
		return false
	}

	p.Name = strings.TrimSpace(req.Name)
	p.Slug = seo.Slugify(req.Name)
	if sku := strings.TrimSpace(req.SKU); sku != "" {
		p.SKU = sku
	} else if p.SKU == "" {
		p.SKU = generateSKU()
	}
	p.Description = req.Description
	p.Price = req.Price.Round(2)
	p.PromotionPrice = req.PromotionPrice
	p.PromotionStart = req.PromotionStart
	p.PromotionEnd = req.PromotionEnd
	p.Stock = req.Stock
	p.Color = req.Color
	p.Brand = req.Brand
	p.Material = req.Material
	p.Weight = req.Weight
	p.Size = req.Size
	p.Specifications = req.Specifications
	p.CategoryID = categoryID
	p.IsFeatured = req.IsFeatured
	p.IsActive = req.IsActive == nil || *req.IsActive
	return true
}

func (h *ProductHandler) skuTaken(sku string, except uuid.UUID) bool {
	var count int64
	h.DB.Model(&models.Product{}).Where("sku = ? AND id <> ?", sku, except).Count(&count)
	return count > 0
}

// AdminListProducts lists the catalog including inactive products.
func (h *ProductHandler) AdminListProducts(c *gin.Context) {
	query := h.DB.Model(&models.Product{})
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	products, pagination, ok := h.listProducts(c, query, 20)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "pagination": pagination})
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	product := models.Product{ID: uuid.New()}
	if !h.apply(c, req, &product) {
		return
	}
	if h.skuTaken(product.SKU, product.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "SKU already exists"})
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		// is_active defaults to true in the schema, so false has to be written
		// explicitly.
		if !product.IsActive {
			return tx.Model(&product).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		h.Logger.Error("failed to create product", zap.String("sku", product.SKU), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	h.DB.Preload("Category").Preload("Images").First(&product, "id = ?", product.ID)
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var product models.Product
	if err := h.DB.Where("id = ?", c.Param("id")).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if !h.apply(c, req, &product) {
		return
	}
	if h.skuTaken(product.SKU, product.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "SKU already exists"})
		return
	}

	// Save writes every column, including false and nil values.
	if err := h.DB.Omit("Category", "Images").Save(&product).Error; err != nil {
		h.Logger.Error("failed to update product", zap.String("product_id", product.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	h.DB.Preload("Category").Preload("Images").First(&product, "id = ?", product.ID)
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes the product and its images. Image files referenced by
// past orders stay in storage so order history keeps its pictures.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	var product models.Product
	if err := h.DB.Preload("Images").Where("id = ?", c.Param("id")).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var orderRefs int64
	h.DB.Model(&models.OrderItem{}).Where("product_id = ?", product.ID).Count(&orderRefs)

	if h.Storage != nil && orderRefs == 0 {
		for _, img := range product.Images {
			h.deleteStoredImage(c, img.ImageURL)
		}
	} else if orderRefs > 0 {
		h.Logger.Info("product is referenced by orders, preserving images",
			zap.String("product_id", product.ID.String()), zap.Int64("orders", orderRefs))
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// deleteStoredImage removes an uploaded file. Failures are logged; a file
// missing from storage must not block removing the record.
func (h *ProductHandler) deleteStoredImage(c *gin.Context, imageURL string) {
	objectPath, err := utils.ExtractObjectPath(imageURL, firebase.FolderProducts)
	if err != nil {
		h.Logger.Debug("image is not a storage object", zap.String("url", imageURL))
		return
	}
	if err := h.Storage.Delete(c.Request.Context(), objectPath); err != nil {
		h.Logger.Warn("failed to delete image from storage", zap.String("object", objectPath), zap.Error(err))
	}
}

// ExportProducts returns the whole catalog, inactive products included, for
// spreadsheet export.
func (h *ProductHandler) ExportProducts(c *gin.Context) {
	var products []models.Product
	if err := h.DB.Preload("Category").Preload("Images").Order("name ASC").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, products)
}
