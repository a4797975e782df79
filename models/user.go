package models

import "gorm.io/gorm"

// User represents a user in the system. AuthID is the identity provider subject
// and is what every owned record stores as its UserID.
type User struct {
	gorm.Model `json:"-"`
	AuthID     string `gorm:"unique;not null;size:100" json:"id"`
	Email      string `gorm:"size:255" json:"email"`
}
