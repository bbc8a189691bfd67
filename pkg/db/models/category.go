package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups products for storefront navigation. Categories nest one
// level at a time through ParentID.
type Category struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name          string     `gorm:"column:name;not null;uniqueIndex"`
	Slug          string     `gorm:"column:slug;not null;uniqueIndex"`
	ParentID      *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	Subcategories []Category `gorm:"foreignKey:ParentID"`
	Products      []Product  `gorm:"foreignKey:CategoryID"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the ID application-side so the SQLite test database
// does not need gen_random_uuid().
func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}
