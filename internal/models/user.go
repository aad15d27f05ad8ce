package models

import (
	"time"
)

// Tiers gate request quotas. Anything above TierBasic is treated as premium.
const (
	TierBasic   = 1
	TierPremium = 2
)

// User represents an account holder.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Name           string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"` // never exposed in JSON
	Tier           int       `gorm:"not null;default:1" json:"tier"`
	MoodLogs       []MoodLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// GetUserID lets a user be checked by the ownership policy like any owned resource.
func (u *User) GetUserID() uint { return u.ID }

// IsPremium reports whether the user is above the basic tier.
func (u *User) IsPremium() bool { return u.Tier > TierBasic }
