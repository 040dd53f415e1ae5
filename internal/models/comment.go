package models

type Comment struct {
	ItemID    uint  `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ToStoryID uint  `gorm:"not null;index" json:"to_story"`
	ParentID  *uint `gorm:"index" json:"parent"` // Nullable for top-level comments
}
