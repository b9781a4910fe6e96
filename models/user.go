package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caller roles
const (
	RoleAdmin      = "admin"
	RoleCaseworker = "caseworker"
	RoleClient     = "client"
)

type User struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name        string     `gorm:"not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	Role        string     `gorm:"not null;default:client" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	// Hidden members only appear to themselves, admins and their case worker
	IsHidden bool `gorm:"not null;default:false" json:"isHidden"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

func (u *User) GetID() string { return u.ID }

// IsStaff reports whether the user works for the service (admin or case worker)
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleCaseworker
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsValidRole checks if the role is valid
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCaseworker, RoleClient:
		return true
	}
	return false
}
