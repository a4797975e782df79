package models

import "gorm.io/gorm"

// OptionCount is the number of options every quiz question carries.
const OptionCount = 4

// Quiz is a single multiple-choice question.
type Quiz struct {
	gorm.Model   `json:"-"`
	PublicID     string   `gorm:"size:32;uniqueIndex;not null" json:"id"`
	UserID       string   `gorm:"size:100;index;not null" json:"-"`
	Question     string   `gorm:"type:text;not null" json:"question"`
	Options      []string `gorm:"serializer:json;type:text;not null" json:"options"`
	CorrectIndex int      `gorm:"not null" json:"correctIndex"`
}

// QuizDraft is a generated question that has not been stored yet.
type QuizDraft struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}
