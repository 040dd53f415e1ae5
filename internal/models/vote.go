package models

import (
	"time"
)

type Vote struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	ItemID uint `gorm:"not null;index:idx_vote_item_user" json:"item_id"`
	UserID uint `gorm:"not null;index:idx_vote_item_user;index" json:"user_id"`
	Value  int  `gorm:"not null" json:"value"` // 1 or -1
	// Effective is true when the row moved the counters at cast time. Repeat
	// casts of the same sign are stored but inert.
	Effective bool      `gorm:"default:false;not null" json:"effective"`
	CreatedAt time.Time `json:"created_at"`
}
