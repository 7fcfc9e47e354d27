package models

import "time"

// Comment is a reply attached to a post.
type Comment struct {
	ID         uint      `gorm:"primaryKey"`
	Identifier string    `gorm:"size:32;not null;uniqueIndex"`
	Body       string    `gorm:"type:text;not null"`
	PostID     uint      `gorm:"not null;index"`
	Post       *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	UserID     uint      `gorm:"not null;index"`
	User       *User     `gorm:"foreignKey:UserID"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string {
	return "comments"
}

// Username returns the author's name when the User association is loaded.
func (c *Comment) Username() string {
	if c.User == nil {
		return ""
	}
	return c.User.Username
}
