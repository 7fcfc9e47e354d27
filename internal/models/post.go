package models

import (
	"fmt"
	"time"
)

// Post is a submission inside a community. Scores are never stored here;
// they are derived from votes at read time.
type Post struct {
	ID         uint      `gorm:"primaryKey"`
	Identifier string    `gorm:"size:32;not null;uniqueIndex"`
	Title      string    `gorm:"size:300;not null"`
	Slug       string    `gorm:"size:255;not null"`
	Body       string    `gorm:"type:text"`
	SubName    string    `gorm:"size:64;not null;index"`
	Sub        *Sub      `gorm:"foreignKey:SubName;references:Name"`
	UserID     uint      `gorm:"not null;index"`
	User       *User     `gorm:"foreignKey:UserID"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

// TableName returns the database table name for Post.
func (Post) TableName() string {
	return "posts"
}

// URL is the client route of the post.
func (p *Post) URL() string {
	return fmt.Sprintf("/r/%s/%s/%s", p.SubName, p.Identifier, p.Slug)
}

// Username returns the author's name when the User association is loaded.
func (p *Post) Username() string {
	if p.User == nil {
		return ""
	}
	return p.User.Username
}
