package models

import (
	"time"
)

// Follow represents a directed follower -> author relationship
type Follow struct {
	FollowerID int64     `gorm:"primaryKey;column:follower_id"`
	AuthorID   int64     `gorm:"primaryKey;column:author_id"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Follower *Account `gorm:"foreignKey:FollowerID;references:ID"`
	Author   *Account `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "sl_follows"
}
