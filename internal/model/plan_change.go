package model

import (
	"time"
)

// Plan change saga states. An upgrade walks pending -> subscribed ->
// allocated; failures end in rolled_back, or needs_reconciliation when the
// compensating delete itself failed and an operator has to intervene.
const (
	ChangeStatePending             = "pending"
	ChangeStateSubscribed          = "subscribed"
	ChangeStateAllocated           = "allocated"
	ChangeStateRolledBack          = "rolled_back"
	ChangeStateNeedsReconciliation = "needs_reconciliation"
)

// PlanChange is the persisted log of one upgrade attempt. A crash mid-upgrade
// leaves a row in a non-terminal state that the reconciliation sweep can find.
type PlanChange struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	UserID         int64     `gorm:"not null;index" json:"user_id"`
	FromPlan       string    `gorm:"size:20;not null" json:"from_plan"`
	ToPlan         string    `gorm:"size:20;not null" json:"to_plan"`
	State          string    `gorm:"size:30;not null;index" json:"state"`
	SubscriptionID *int64    `json:"subscription_id,omitempty"`
	PaymentRef     string    `gorm:"size:100" json:"payment_ref,omitempty"`
	Detail         string    `gorm:"size:500" json:"detail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PlanChange) TableName() string {
	return "plan_changes"
}
