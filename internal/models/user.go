package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// CanModerate reports whether the role may delete other people's content.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

type User struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"not null" json:"name"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Password   string `gorm:"not null" json:"-"`
	PictureURL string `json:"picture_url"`
	Role       Role   `gorm:"type:varchar(16);not null;default:user" json:"role"`

	// Rating is the sum of vote weights received on authored posts.
	// Only the vote engine changes it.
	Rating int `gorm:"not null;default:0" json:"rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	PictureURL string `json:"picture_url"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}

type UpdateProfileRequest struct {
	Name       string `json:"name" binding:"omitempty,max=100"`
	PictureURL string `json:"picture_url" binding:"omitempty,url"`
}
