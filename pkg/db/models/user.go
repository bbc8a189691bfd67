package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/uncannyvalley/comicshop-backend/pkg/db/types"
	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
)

// GroupOwner marks shop owners; members outrank staff but not superadmins.
const GroupOwner = "owner"

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Email        string             `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string             `gorm:"column:password_hash;not null"`
	FirstName    *string            `gorm:"column:first_name"`
	LastName     *string            `gorm:"column:last_name"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true"`
	IsStaff      bool               `gorm:"column:is_staff;not null;default:false"`
	IsSuperuser  bool               `gorm:"column:is_superuser;not null;default:false"`
	GroupNames   dbtypes.StringList `gorm:"column:group_names;type:text;not null;default:'[]'"`
	LastLoginAt  *time.Time         `gorm:"column:last_login_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the ID application-side so the SQLite test database
// does not need gen_random_uuid().
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Role derives the effective role from flags and group membership.
// Superuser wins over owner group, owner group wins over the staff flag.
func (u User) Role() enums.UserRole {
	switch {
	case u.IsSuperuser:
		return enums.UserRoleSuperadmin
	case u.GroupNames.Contains(GroupOwner):
		return enums.UserRoleOwner
	case u.IsStaff:
		return enums.UserRoleStaff
	}
	return enums.UserRoleCustomer
}
