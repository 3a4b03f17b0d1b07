package model

import (
	"time"
)

// Subscription status values. This service only ever writes active (on
// upgrade) and canceled/past_due (on expiration handling); incomplete and
// trialing are driven by the billing webhook.
const (
	SubStatusActive     = "active"
	SubStatusCanceled   = "canceled"
	SubStatusPastDue    = "past_due"
	SubStatusIncomplete = "incomplete"
	SubStatusTrialing   = "trialing"
)

type Subscription struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	UserID             int64     `gorm:"not null;index" json:"user_id"`
	Plan               string    `gorm:"size:20;not null" json:"plan"`
	Status             string    `gorm:"size:20;default:active;index" json:"status"`
	CurrentPeriodStart time.Time `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `gorm:"not null;index" json:"current_period_end"`
	CancelAtPeriodEnd  bool      `gorm:"default:false" json:"cancel_at_period_end"`
	AmountCents        int       `json:"amount_cents,omitempty"`
	PaymentRef         string    `gorm:"size:100" json:"payment_ref,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
