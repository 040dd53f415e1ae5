package models

import (
	"time"
)

type ItemKind string

const (
	KindStory   ItemKind = "story"
	KindComment ItemKind = "comment"
)

// Tallied is the capability shared by everything that can be voted on.
type Tallied interface {
	ItemID() uint
	OwnerID() uint
}

// Tally is the vote counter triple of an item.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Points    int `json:"points"`
}

// Item is the common row of stories and comments. Exactly one of Story or
// Comment is set, matching Kind.
type Item struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Kind        ItemKind  `gorm:"type:varchar(10);not null;index" json:"kind"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Upvotes     int       `gorm:"default:0;not null" json:"upvotes"`
	Downvotes   int       `gorm:"default:0;not null" json:"downvotes"`
	Points      int       `gorm:"default:0;not null" json:"points"`
	Text        string    `gorm:"type:text" json:"text"`
	NumComments int       `gorm:"default:0;not null" json:"num_comments"` // whole subtree
	Story       *Story    `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE;" json:"story,omitempty"`
	Comment     *Comment  `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE;" json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ChangedAt   time.Time `gorm:"autoUpdateTime;index" json:"changed_at"`
}

func (i *Item) ItemID() uint  { return i.ID }
func (i *Item) OwnerID() uint { return i.UserID }

func (i *Item) IsStory() bool   { return i.Kind == KindStory }
func (i *Item) IsComment() bool { return i.Kind == KindComment }

func (i *Item) Tally() Tally {
	return Tally{Upvotes: i.Upvotes, Downvotes: i.Downvotes, Points: i.Points}
}

// StoryID returns the root story of the thread the item belongs to.
func (i *Item) StoryID() uint {
	if i.IsComment() && i.Comment != nil {
		return i.Comment.ToStoryID
	}
	return i.ID
}
