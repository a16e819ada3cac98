package handlers

import (
	"net/http"
	"time"

	"giftshop-backend/models"
	"giftshop-backend/seo"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SitemapHandler struct {
	DB     *gorm.DB
	Site   seo.Site
	Logger *zap.Logger
}

func (h *SitemapHandler) Sitemap(c *gin.Context) {
	var categories []string
	if err := h.DB.Model(&models.Category{}).Order("sort_order ASC, name ASC").Pluck("name", &categories).Error; err != nil {
		c.String(http.StatusInternalServerError, "failed to build sitemap")
		return
	}

	var rows []models.Product
	if err := h.DB.Select("id", "name", "updated_at").Where("is_active = ?", true).
		Order("created_at ASC").Find(&rows).Error; err != nil {
		c.String(http.StatusInternalServerError, "failed to build sitemap")
		return
	}
	products := make([]seo.SitemapProduct, 0, len(rows))
	for _, p := range rows {
		products = append(products, seo.SitemapProduct{ID: p.ID.String(), Name: p.Name, UpdatedAt: p.UpdatedAt})
	}

	body, err := seo.BuildSitemap(h.Site, categories, products, time.Now()).Marshal()
	if err != nil {
		h.Logger.Error("failed to encode sitemap", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to build sitemap")
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func (h *SitemapHandler) Robots(c *gin.Context) {
	c.String(http.StatusOK, seo.RobotsTxt(h.Site))
}
