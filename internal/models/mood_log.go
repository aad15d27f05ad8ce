package models

import "time"

// Mood and energy are both scored on a 1..5 scale.
const (
	MinScore = 1
	MaxScore = 5
)

// MoodLog is one mood/energy observation.
type MoodLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	MoodValue   int       `gorm:"not null" json:"mood_value"`
	EnergyLevel int       `gorm:"not null" json:"energy_level"`
	Notes       *string   `gorm:"type:text" json:"notes"`
	Weather     *string   `gorm:"size:100" json:"weather"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (l *MoodLog) GetUserID() uint { return l.UserID }

// Day returns the UTC calendar day the log belongs to.
func (l *MoodLog) Day() string {
	return l.CreatedAt.UTC().Format(time.DateOnly)
}

// LoggedOn reports whether the log was created on the same UTC calendar day as t.
func (l *MoodLog) LoggedOn(t time.Time) bool {
	return l.Day() == t.UTC().Format(time.DateOnly)
}

// ValidScore reports whether v lies within the mood/energy scale.
func ValidScore(v int) bool {
	return v >= MinScore && v <= MaxScore
}

// MoodLabel names a mood score for display.
func MoodLabel(v int) string {
	switch v {
	case 1:
		return "awful"
	case 2:
		return "low"
	case 3:
		return "okay"
	case 4:
		return "good"
	case 5:
		return "great"
	default:
		return "unknown"
	}
}
