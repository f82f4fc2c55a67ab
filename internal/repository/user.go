package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/pkg/database"
)

// UserRepository is the account table's read/write boundary.
type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return database.GetDB().WithContext(ctx).Create(u).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := database.GetDB().WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := database.GetDB().WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, data map[string]any) error {
	return database.GetDB().WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(data).Error
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string, loginAt any, ip string) error {
	return database.GetDB().WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at":         loginAt,
		"last_login_ip":         ip,
		"failed_login_attempts": 0,
	}).Error
}

func (r *UserRepository) IncrementFailedLogin(ctx context.Context, id string) error {
	return database.GetDB().WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error
}
