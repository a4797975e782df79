package models

import (
	"time"
)

// QuizResult is stored each time a quiz session reaches completion.
type QuizResult struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       string    `gorm:"size:100;not null;index" json:"-"`
	CorrectCount int       `gorm:"not null" json:"correctCount"`
	Total        int       `gorm:"not null" json:"total"`
	Percentage   int       `gorm:"not null" json:"percentage"`
	CompletedAt  time.Time `gorm:"autoCreateTime" json:"completedAt"`
}
