package models

import (
	"time"

	"gorm.io/gorm"
)

// Note records one analysis run over a user's submitted notes
type Note struct {
	gorm.Model `json:"-"`
	PublicID   string `gorm:"size:32;uniqueIndex;not null" json:"id"`
	UserID     string `gorm:"size:100;index;not null" json:"-"`
	Excerpt    string `gorm:"type:text" json:"excerpt"`
	Summary    string `gorm:"type:text" json:"summary"`

	ImageCount int `gorm:"default:0" json:"imageCount"`
	PDFCount   int `gorm:"default:0" json:"pdfCount"`

	FlashcardsGenerated int `gorm:"default:0" json:"flashcardsGenerated"`
	QuizzesGenerated    int `gorm:"default:0" json:"quizzesGenerated"`
	PointsGenerated     int `gorm:"default:0" json:"pointsGenerated"`

	AnalyzedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
