package models

import "time"

const (
	RoleAdmin         = "admin"
	RoleManager       = "manager"
	RoleRep           = "rep"
	RoleViewer        = "viewer"
	RoleCustomerAdmin = "customer_admin"
)

// User is the account table backing monitor/ingestion-run ownership (§6).
type User struct {
	ID                  string     `json:"id" gorm:"primaryKey"`
	Email               string     `json:"email" gorm:"uniqueIndex;not null"`
	Name                string     `json:"name"`
	PasswordHash        string     `json:"-" gorm:"not null"`
	Role                string     `json:"role" gorm:"not null;default:viewer"`
	AccountName         *string    `json:"account_name"`
	IsActive            bool       `json:"is_active" gorm:"not null;default:true"`
	IsEmailVerified     bool       `json:"is_email_verified" gorm:"not null;default:false"`
	FailedLoginAttempts int        `json:"failed_login_attempts" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"locked_until"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	LastLoginIP         *string    `json:"last_login_ip"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// UserResponse is the response shape without password_hash.
type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	AccountName *string `json:"account_name"`
	IsActive    bool    `json:"is_active"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		AccountName: u.AccountName,
		IsActive:    u.IsActive,
	}
}
