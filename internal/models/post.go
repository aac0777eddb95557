package models

import (
	"time"
)

// Post represents a startup content post with its engagement counters.
// CreatedAt is immutable after creation; counters only grow outside of
// corrective admin actions.
type Post struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	AuthorID   int64     `gorm:"not null;index;column:author_id"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`
	IsApproved bool      `gorm:"not null;default:false;column:is_approved"`
	IsDraft    bool      `gorm:"not null;default:false;column:is_draft"`

	LikeCount     int64 `gorm:"not null;default:0;column:like_count"`
	CommentCount  int64 `gorm:"not null;default:0;column:comment_count"`
	ShareCount    int64 `gorm:"not null;default:0;column:share_count"`
	BookmarkCount int64 `gorm:"not null;default:0;column:bookmark_count"`
	ViewCount     int64 `gorm:"not null;default:0;column:view_count"`

	// Relationships
	Author *Account `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "sl_posts"
}
