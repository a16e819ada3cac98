package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a catalog section. Categories with a ParentID are shown as
// sub-categories in the navigation menu.
type Category struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name          string         `gorm:"uniqueIndex;not null" json:"name"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`
	Icon          string         `json:"icon"`
	Description   string         `json:"description"`
	ParentID      *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	SortOrder     int            `gorm:"default:0" json:"sort_order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Subcategories []Category     `gorm:"foreignKey:ParentID" json:"subcategories,omitempty"`
	Products      []Product      `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
