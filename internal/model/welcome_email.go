package model

import (
	"time"
)

// WelcomeEmail records that the transactional welcome mail went out, so the
// send endpoint can signal "already sent" instead of mailing twice.
type WelcomeEmail struct {
	ID     int64     `gorm:"primaryKey" json:"id"`
	UserID int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	Email  string    `gorm:"size:100;not null" json:"email"`
	SentAt time.Time `json:"sent_at"`
}

func (WelcomeEmail) TableName() string {
	return "welcome_emails"
}
