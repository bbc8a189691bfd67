package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/uncannyvalley/comicshop-backend/pkg/db/types"
)

// Product represents a single catalog listing. Price is the current list
// price; order items snapshot it at add-to-cart time and never follow it.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Title       string          `gorm:"column:title;not null"`
	Slug        string          `gorm:"column:slug;not null;uniqueIndex"`
	Description string          `gorm:"column:description;not null;default:''"`
	SKU         *string         `gorm:"column:sku"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id;type:uuid;index"`
	Category    *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	SalesCount  int             `gorm:"column:sales_count;not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null"`
	Trending    bool            `gorm:"column:trending;not null;default:false"`
	Attributes  dbtypes.JSONMap `gorm:"column:attributes;type:jsonb;not null;default:'{}'"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the ID application-side so the SQLite test database
// does not need gen_random_uuid().
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Normalize()
	return nil
}

// Normalize derives the slug when empty, clamps the counters, and recomputes
// visibility. Every stock mutation must run it before persisting:
// sales_count never goes negative and a product is listed exactly while it
// has stock.
func (p *Product) Normalize() {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	if p.SalesCount < 0 {
		p.SalesCount = 0
	}
	p.IsActive = p.Stock > 0
}
