package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/uncannyvalley/comicshop-backend/pkg/db/types"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
)

// Order doubles as the cart while pending and as the purchase record once
// paid. Exactly one of UserID or SessionKey identifies the owner; the
// partial unique indexes keep at most one pending order per identity.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *uuid.UUID        `gorm:"column:user_id;type:uuid;index:idx_orders_pending_user,unique,where:status = 'pending' AND user_id IS NOT NULL"`
	User            *User             `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	SessionKey      *string           `gorm:"column:session_key;index:idx_orders_pending_session,unique,where:status = 'pending' AND session_key IS NOT NULL"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'pending';index"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(10,2);not null;default:0"`
	ShippingAddress dbtypes.JSONMap   `gorm:"column:shipping_address;type:jsonb;not null;default:'{}'"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt          *time.Time        `gorm:"column:paid_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the ID application-side so the SQLite test database
// does not need gen_random_uuid().
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsGuest reports whether the order belongs to an anonymous session.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// RecalculateTotal recomputes Total from the loaded items. The total is
// never adjusted incrementally.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.Total = total
}
