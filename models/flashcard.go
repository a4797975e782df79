package models

import (
	"gorm.io/gorm"
)

// Strength is a flashcard's self-assessed mastery grade.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthOkay   Strength = "okay"
	StrengthStrong Strength = "strong"
)

// Valid reports whether s is one of the three known grades.
func (s Strength) Valid() bool {
	switch s {
	case StrengthWeak, StrengthOkay, StrengthStrong:
		return true
	}
	return false
}

// ParseStrength converts user input into a Strength.
func ParseStrength(v string) (Strength, bool) {
	s := Strength(v)
	return s, s.Valid()
}

// Flashcard represents an individual flashcard owned by a user
type Flashcard struct {
	gorm.Model `json:"-"`
	PublicID   string   `gorm:"size:32;uniqueIndex;not null" json:"id"`
	UserID     string   `gorm:"size:100;index;not null" json:"-"`
	Front      string   `gorm:"type:text;not null" json:"front"`
	Back       string   `gorm:"type:text;not null" json:"back"`
	Strength   Strength `gorm:"size:10;not null;default:weak" json:"strength"`
}

// FlashcardDraft is generated content that has not been stored yet.
type FlashcardDraft struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
