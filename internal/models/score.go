package models

import (
	"time"
)

// RankingScore holds the derived, viewer-independent score components for
// one post. Written only by the batch scorer; the request path treats it
// as read-only and tolerates staleness between runs.
type RankingScore struct {
	PostID     int64     `gorm:"primaryKey;column:post_id"`
	Engagement float64   `gorm:"type:float;not null;default:0;column:engagement"`
	Recency    float64   `gorm:"type:float;not null;default:0;column:recency"`
	Quality    float64   `gorm:"type:float;not null;default:0;column:quality"`
	Reputation float64   `gorm:"type:float;not null;default:0;column:reputation"`
	Trending   float64   `gorm:"type:float;not null;default:0;column:trending"`
	Total      float64   `gorm:"type:float;not null;default:0;index;column:total"`
	ScoredAt   time.Time `gorm:"not null;column:scored_at"`

	// Relationships
	Post *Post `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for RankingScore
func (RankingScore) TableName() string {
	return "sl_ranking_scores"
}
