package models

import (
	"fmt"
	"time"
)

// TargetKind distinguishes what a vote points at.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	return k == TargetPost || k == TargetComment
}

// Column is the votes column that references targets of this kind.
func (k TargetKind) Column() string {
	if k == TargetComment {
		return "comment_id"
	}
	return "post_id"
}

// VoteTarget identifies a single votable row.
type VoteTarget struct {
	Kind TargetKind
	ID   uint
}

func (t VoteTarget) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Vote is one voter's stance on one post or comment. Exactly one of PostID and
// CommentID is set; (UserID, PostID) and (UserID, CommentID) are unique.
type Vote struct {
	ID        uint     `gorm:"primaryKey"`
	Value     int8     `gorm:"not null;default:0"`
	UserID    uint     `gorm:"not null;uniqueIndex:idx_votes_voter_post,where:post_id IS NOT NULL;uniqueIndex:idx_votes_voter_comment,where:comment_id IS NOT NULL"`
	User      *User    `gorm:"foreignKey:UserID"`
	PostID    *uint    `gorm:"index;uniqueIndex:idx_votes_voter_post,where:post_id IS NOT NULL"`
	Post      *Post    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CommentID *uint    `gorm:"index;uniqueIndex:idx_votes_voter_comment,where:comment_id IS NOT NULL"`
	Comment   *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string {
	return "votes"
}

// NewVote builds an unsaved vote for voterID on target.
func NewVote(voterID uint, target VoteTarget, value int8) *Vote {
	v := &Vote{UserID: voterID, Value: value}
	id := target.ID
	if target.Kind == TargetComment {
		v.CommentID = &id
	} else {
		v.PostID = &id
	}
	return v
}

// Target returns what the vote points at.
func (v *Vote) Target() VoteTarget {
	if v.CommentID != nil {
		return VoteTarget{Kind: TargetComment, ID: *v.CommentID}
	}
	if v.PostID != nil {
		return VoteTarget{Kind: TargetPost, ID: *v.PostID}
	}
	return VoteTarget{}
}

// ValidVoteValue reports whether value is one of -1, 0, 1.
func ValidVoteValue(value int) bool {
	return value >= -1 && value <= 1
}
