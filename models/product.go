package models

import (
	"time"

	"giftshop-backend/cart"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name           string           `gorm:"not null" json:"name"`
	Slug           string           `gorm:"index" json:"slug"`
	SKU            string           `gorm:"uniqueIndex;not null" json:"sku"`
	Description    string           `json:"description"`
	Price          decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	PromotionPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"promotion_price,omitempty"`
	PromotionStart *time.Time       `json:"promotion_start,omitempty"`
	PromotionEnd   *time.Time       `json:"promotion_end,omitempty"`
	// Stock is nil when the product is not stock-tracked.
	Stock          *int             `json:"stock"`
	Color          string           `json:"color"`
	Brand          string           `json:"brand"`
	Material       string           `json:"material"`
	Weight         string           `json:"weight"`
	Size           string           `json:"size"`
	Specifications string           `json:"specifications"`
	CategoryID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"category_id"`
	Category       Category         `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	IsFeatured     bool             `gorm:"default:false" json:"is_featured"`
	IsActive       bool             `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
	Images         []ProductImage   `gorm:"foreignKey:ProductID" json:"images,omitempty"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsPromotionActive reports whether PromotionPrice applies right now. A
// promotion needs a price and at least one bound of its window.
func (p *Product) IsPromotionActive() bool {
	if p.PromotionPrice == nil {
		return false
	}
	if p.PromotionStart == nil && p.PromotionEnd == nil {
		return false
	}
	now := time.Now()
	if p.PromotionStart != nil && now.Before(*p.PromotionStart) {
		return false
	}
	if p.PromotionEnd != nil && now.After(*p.PromotionEnd) {
		return false
	}
	return true
}

func (p *Product) CurrentPrice() decimal.Decimal {
	if p.IsPromotionActive() {
		return *p.PromotionPrice
	}
	return p.Price
}

func (p *Product) InStock() bool {
	return p.Stock == nil || *p.Stock > 0
}

// ThumbnailURL returns the thumbnail image, falling back to the first image.
func (p *Product) ThumbnailURL() string {
	for _, img := range p.Images {
		if img.IsThumbnail {
			return img.ImageURL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].ImageURL
	}
	return ""
}

// ToCartProduct snapshots the product at its current price for a cart line.
func (p *Product) ToCartProduct() cart.Product {
	images := make([]cart.Image, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, cart.Image{URL: img.ImageURL, IsThumbnail: img.IsThumbnail})
	}
	var stock *int
	if p.Stock != nil {
		s := *p.Stock
		stock = &s
	}
	return cart.Product{
		ID:     p.ID.String(),
		Name:   p.Name,
		Price:  p.CurrentPrice(),
		Stock:  stock,
		Slug:   p.Slug,
		SKU:    p.SKU,
		Color:  p.Color,
		Images: images,
	}
}
