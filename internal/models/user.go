// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered forum member.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Username  string    `gorm:"size:32;not null;uniqueIndex" json:"username"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}
