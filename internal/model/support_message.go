package model

import (
	"time"
)

const (
	SupportStatusOpen     = "open"
	SupportStatusResolved = "resolved"
)

type SupportMessage struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	Subject    string    `gorm:"size:200;not null" json:"subject"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	Status     string    `gorm:"size:20;default:open;index" json:"status"`
	AdminReply *string   `gorm:"type:text" json:"admin_reply,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SupportMessage) TableName() string {
	return "support_messages"
}
