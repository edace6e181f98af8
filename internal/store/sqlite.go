package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/authcascade/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// User operations
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a user, assigning an ID when missing
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	exists, err := s.UsernameExists(ctx, user.Username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUsernameConflict
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// UpdateUser saves user under newUsername, which may equal user.Username.
// A rename onto a username held by another user fails with ErrUsernameConflict.
func (s *Store) UpdateUser(ctx context.Context, user *models.User, newUsername string) error {
	if newUsername != "" && newUsername != user.Username {
		var conflicting models.User
		err := s.db.WithContext(ctx).
			Where("username = ? AND id != ?", newUsername, user.ID).
			First(&conflicting).
			Error
		if err == nil {
			return ErrUsernameConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}
		user.Username = newUsername
	}

	return s.db.WithContext(ctx).Save(user).Error
}

// DeleteUserByUsername removes a user; ErrRecordNotFound if nothing was deleted
func (s *Store) DeleteUserByUsername(ctx context.Context, username string) error {
	result := s.db.WithContext(ctx).Where("username = ?", username).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListUsernames returns all usernames, alphabetically when sorted is true
// and in insertion order otherwise.
func (s *Store) ListUsernames(ctx context.Context, sorted bool) ([]string, error) {
	order := "created_at ASC"
	if sorted {
		order = "username ASC"
	}

	var usernames []string
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Order(order).
		Pluck("username", &usernames).
		Error; err != nil {
		return nil, err
	}
	return usernames, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).
		Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
