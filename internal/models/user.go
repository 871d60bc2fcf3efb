// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultStatus is assigned to users that sign up without a status.
const DefaultStatus = "What's  on your mind!"

// User is a registered author.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"_id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `gorm:"not null" json:"name"`
	Password string `gorm:"not null" json:"-"`
	Status   string `gorm:"not null" json:"status"`
	// Posts is materialised from user_posts in insertion order.
	Posts     []uint    `gorm:"-" json:"posts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate fills in the default status.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.Status == "" {
		u.Status = DefaultStatus
	}
	return nil
}

// UserSummary is the creator view embedded in post responses.
type UserSummary struct {
	ID   uint   `json:"_id"`
	Name string `json:"name"`
}

// UserPost is the ordered back-reference from a user to the posts they own.
type UserPost struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	PostID    uint      `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

// Identity is the authenticated caller recovered from a session token.
type Identity struct {
	UserID uint
	Email  string
}
