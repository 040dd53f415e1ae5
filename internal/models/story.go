package models

// Story is the link-pair detail row of a story item.
type Story struct {
	ItemID         uint   `gorm:"primaryKey;autoIncrement:false" json:"-"`
	OriginalURL    string `gorm:"size:2000;not null;index:idx_story_urls,priority:1" json:"original_url"`
	ProductURL     string `gorm:"size:2000;not null;index:idx_story_urls,priority:2" json:"product_url"`
	OriginalDomain string `gorm:"column:original_url_domain;size:255" json:"original_url_domain"`
	ProductDomain  string `gorm:"column:product_url_domain;size:255" json:"product_url_domain"`
	Title          string `gorm:"size:500" json:"title"`
	ProductTitle   string `gorm:"size:500" json:"product_title"`
	DuplicateOfID  *uint  `gorm:"index" json:"duplicate_of"` // canonical story, nil unless a duplicate
	IsAsk          bool   `gorm:"default:false" json:"is_ask"`
	IsShow         bool   `gorm:"default:false" json:"is_show"`
}
