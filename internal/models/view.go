package models

import "time"

// PostView is a post as seen by one requester: the shared aggregates plus the
// requester's own vote. It is built per request and never persisted.
type PostView struct {
	Identifier   string    `json:"identifier"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	SubName      string    `json:"subName"`
	Username     string    `json:"username"`
	URL          string    `json:"url"`
	VoteScore    int64     `json:"voteScore"`
	CommentCount int64     `json:"commentCount"`
	UserVote     *int8     `json:"userVote"`
	Sub          *SubView  `json:"sub,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CommentView is a comment as seen by one requester.
type CommentView struct {
	Identifier     string    `json:"identifier"`
	Body           string    `json:"body"`
	Username       string    `json:"username"`
	PostIdentifier string    `json:"postIdentifier"`
	VoteScore      int64     `json:"voteScore"`
	UserVote       *int8     `json:"userVote"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SubView is the public shape of a community.
type SubView struct {
	Name        string      `json:"name"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ImageURL    string      `json:"imageUrl"`
	BannerURL   string      `json:"bannerUrl,omitempty"`
	Username    string      `json:"username,omitempty"`
	Posts       []*PostView `json:"posts,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// TopSub is one row of the community ranking.
type TopSub struct {
	Title     string `json:"title"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl"`
	PostCount int64  `json:"postCount"`
}

// NewSubView projects a Sub through the image resolver.
func NewSubView(sub *Sub, images ImageResolver) *SubView {
	if sub == nil {
		return nil
	}
	view := &SubView{
		Name:        sub.Name,
		Title:       sub.Title,
		Description: sub.Description,
		ImageURL:    images.ImageURL(sub.ImageURN),
		BannerURL:   images.BannerURL(sub.BannerURN),
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}
	if sub.User != nil {
		view.Username = sub.User.Username
	}
	return view
}
