package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;size:64" json:"username"`
	DisplayName *string   `gorm:"size:128" json:"display_name,omitempty"`
	AvatarURL   *string   `gorm:"size:500" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// LoginRequest is the find-or-create login payload
type LoginRequest struct {
	Username    string  `json:"username" binding:"required,min=3,max=64"`
	DisplayName *string `json:"display_name"`
}

// AuthResponse carries the minted token and user profile
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
