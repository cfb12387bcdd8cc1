package model

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`              // user ID
	Email        string    `gorm:"uniqueIndex;not null" json:"email"` // login email
	PasswordHash string    `gorm:"not null" json:"-"`                 // bcrypt hash
	Name         string    `gorm:"not null" json:"name"`              // display name
	CreatedAt    time.Time `json:"created_at"`                        // created
	UpdatedAt    time.Time `json:"updated_at"`                        // updated

	Roles []Role `gorm:"many2many:user_roles;" json:"roles,omitempty"` // role memberships
}

func (User) TableName() string {
	return "users"
}

// RoleNames flattens the loaded role memberships.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
