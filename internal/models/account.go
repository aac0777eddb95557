package models

import (
	"database/sql"
	"time"
)

// Account represents a platform user. Reputation is a 0-100 scalar
// maintained by the profile service; this system only reads it.
type Account struct {
	ID         int64           `gorm:"primaryKey;autoIncrement;column:id"`
	Username   string          `gorm:"type:varchar(64);not null;uniqueIndex:sl_accounts_ux1;column:username"`
	CreatedAt  time.Time       `gorm:"not null;column:created_at"`
	Reputation sql.NullFloat64 `gorm:"type:float;column:reputation"`

	Followers int64 `gorm:"not null;default:0;column:followers"`
	Following int64 `gorm:"not null;default:0;column:following"`
	PostCount int64 `gorm:"not null;default:0;column:post_count"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "sl_accounts"
}
