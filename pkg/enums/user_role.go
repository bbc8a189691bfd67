package enums

import "fmt"

// UserRole is the effective permissions role derived from a user's flags
// and group memberships.
type UserRole string

const (
	UserRoleSuperadmin UserRole = "superadmin"
	UserRoleOwner      UserRole = "owner"
	UserRoleStaff      UserRole = "staff"
	UserRoleCustomer   UserRole = "customer"
)

var validUserRoles = []UserRole{
	UserRoleSuperadmin,
	UserRoleOwner,
	UserRoleStaff,
	UserRoleCustomer,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role grants access to the admin surface.
func (u UserRole) IsAdmin() bool {
	switch u {
	case UserRoleSuperadmin, UserRoleOwner, UserRoleStaff:
		return true
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
