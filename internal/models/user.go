package models

import (
	"time"
)

// Role is the authorization level carried by a user and embedded in tokens.
type Role string

const (
	RoleUser       Role = "User"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex:idx_users_username;not null" json:"username"`
	Email     string    `gorm:"size:100;uniqueIndex:idx_users_email;not null" json:"email,omitempty"`
	Password  string    `gorm:"not null" json:"-"`
	Role      Role      `gorm:"size:16;not null;default:User;index" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	Profile   *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile holds the optional public details of a user.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"` // storage reference, stored verbatim
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

// UpdateUserRequest is the moderation payload accepted by admins.
type UpdateUserRequest struct {
	Role     *Role `json:"role"`
	IsActive *bool `json:"is_active"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
