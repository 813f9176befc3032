package models

import (
	"strings"
	"time"
)

// User roles.
const (
	RoleBuyer    = "buyer"
	RoleSeller   = "seller"
	RoleAssessor = "assessor"
	RoleAdmin    = "admin"
)

// User is an authenticated marketplace user.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	SellerID  *uint     `json:"seller_id"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRole reports whether the user carries one of the roles.
func (u User) HasRole(roles ...string) bool {
	current := strings.ToLower(strings.TrimSpace(u.Role))
	for _, role := range roles {
		if current == role {
			return true
		}
	}
	return false
}

// CanAssess reports whether the user may action evidence assessments.
func (u User) CanAssess() bool {
	return u.Active && u.HasRole(RoleAssessor, RoleAdmin)
}
