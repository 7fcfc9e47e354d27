package models

import "time"

// DefaultSubImageURL is returned for communities without a stored image.
const DefaultSubImageURL = "https://www.gravatar.com/avatar?d=mp&f=y"

// Sub is a community that owns posts.
type Sub struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Name        string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURN    *string   `gorm:"size:255" json:"-"`
	BannerURN   *string   `gorm:"size:255" json:"-"`
	UserID      uint      `gorm:"not null;index" json:"-"`
	User        *User     `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Sub.
func (Sub) TableName() string {
	return "subs"
}

// ImageResolver turns stored image identifiers into absolute URLs.
type ImageResolver struct {
	BaseURL string
}

// ImageURL resolves urn to BaseURL/images/<urn>, or the placeholder when urn is empty.
func (r ImageResolver) ImageURL(urn *string) string {
	if urn == nil || *urn == "" {
		return DefaultSubImageURL
	}
	return r.BaseURL + "/images/" + *urn
}

// BannerURL resolves a banner identifier; communities without a banner get "".
func (r ImageResolver) BannerURL(urn *string) string {
	if urn == nil || *urn == "" {
		return ""
	}
	return r.BaseURL + "/images/" + *urn
}
