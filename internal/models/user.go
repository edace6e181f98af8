package models

import (
	"time"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"index"`
	PasswordHash string
	FullName     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword returns true if the user can log in with a password
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
