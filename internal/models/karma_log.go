package models

import (
	"time"
)

type KarmaLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ItemID    *uint     `gorm:"index" json:"item_id"`
	Amount    int       `gorm:"not null" json:"amount"`          // positive or negative
	Action    string    `gorm:"size:100;not null" json:"action"` // what moved the karma
	CreatedAt time.Time `json:"created_at"`
}
