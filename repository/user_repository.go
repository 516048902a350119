package repository

import (
	"context"
	"errors"
	"fmt"

	"orpheus/model"

	"gorm.io/gorm"
)

// UserRepository backs the dev login flow.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// gormUserRepository implements UserRepository on MySQL via GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new instance of gormUserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// CreateUser inserts a new user row.
func (r *gormUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

// GetUserByUsername fetches a user by username; nil when absent.
func (r *gormUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user %s: %w", username, err)
	}
	return &user, nil
}
