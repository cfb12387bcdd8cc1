package model

import (
	"strings"
	"time"
)

const (
	RoleAdministrator = "Administrator"
	RoleManager       = "Manager"
	RoleCustomer      = "Customer"
)

// PrivilegedRoles may mutate the catalog and manage orders.
var PrivilegedRoles = []string{RoleAdministrator, RoleManager}

type Role struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Name           string    `gorm:"type:varchar(64);not null" json:"name"`
	NormalizedName string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Role) TableName() string {
	return "roles"
}

// UserRole is the join row behind User.Roles.
type UserRole struct {
	UserID    uint `gorm:"primaryKey"`
	RoleID    uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

func (UserRole) TableName() string {
	return "user_roles"
}

// NormalizeRoleName is the lookup key for role names.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
