package models

import "time"

// UserRole represents a user's permission level within their household
type UserRole string

const (
	UserRoleOwner  UserRole = "owner"
	UserRoleMember UserRole = "member"
)

// User represents the user model in the database
type User struct {
	Base
	HouseholdID      string     `gorm:"type:uuid;not null;index" json:"household_id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Role             UserRole   `gorm:"not null;default:'member'" json:"role"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	RefreshTokenHash string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	// Relationships
	Household Household `gorm:"foreignKey:HouseholdID" json:"-"`
}
