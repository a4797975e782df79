package models

import "gorm.io/gorm"

// ImportantPoint is a short exam-relevant fact. Displayed, never scored.
type ImportantPoint struct {
	gorm.Model `json:"-"`
	PublicID   string `gorm:"size:32;uniqueIndex;not null" json:"id"`
	UserID     string `gorm:"size:100;index;not null" json:"-"`
	Content    string `gorm:"type:text;not null" json:"content"`
}
