package dto

import (
	"time"
)

// TokenBalance is the normalized balance view returned to callers.
type TokenBalance struct {
	Current     int        `json:"current"`
	TotalUsed   int        `json:"total_used"`
	ResetDate   *time.Time `json:"reset_date,omitempty"`
	IsUnlimited bool       `json:"is_unlimited"`
	PlanName    string     `json:"plan_name"`
}

type DeductResult struct {
	TokensRemaining int    `json:"tokens_remaining"`
	Unlimited       bool   `json:"unlimited"`
	TransactionID   string `json:"transaction_id"`
}

type CreditResult struct {
	TokensAdded   int    `json:"tokens_added"`
	NewBalance    int    `json:"new_balance"`
	TransactionID string `json:"transaction_id"`
}

// ValidationResult is the read-only permission probe for a token cost.
type ValidationResult struct {
	CanPerform bool `json:"can_perform"`
	Unlimited  bool `json:"unlimited"`
	Shortfall  int  `json:"shortfall"`
}

type TokenTransaction struct {
	ID           string    `json:"id"`
	Amount       int       `json:"amount"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	BalanceAfter int       `json:"balance_after"`
	ReferenceID  *string   `json:"reference_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type DeductRequest struct {
	Amount      int    `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required"`
	ReferenceID string `json:"reference_id"`
}

type ValidateRequest struct {
	RequiredTokens int `json:"required_tokens" binding:"required"`
}

type HealthStatus struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}
