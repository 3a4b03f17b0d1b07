package dto

import (
	"time"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/model"
)

// PlanSummary is one catalog entry with its tier name, for listings.
type PlanSummary struct {
	Name   string            `json:"name"`
	Config config.PlanConfig `json:"config"`
}

// UserPlan merges the static catalog entry with live balance and
// subscription state.
type UserPlan struct {
	Type         string              `json:"type"`
	Config       config.PlanConfig   `json:"config"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
	Tokens       *TokenBalance       `json:"tokens,omitempty"`
}

// PermissionDecision is the ephemeral result of a CanPerform check.
type PermissionDecision struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason,omitempty"`
	RequiresUpgrade bool   `json:"requires_upgrade"`
	TokensNeeded    int    `json:"tokens_needed,omitempty"`
	TokensAvailable int    `json:"tokens_available,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	CurrentUsage    int    `json:"current_usage,omitempty"`
}

// ActionContext carries caller-supplied usage counters for limit checks.
type ActionContext struct {
	ExtensionsThisMonth int `json:"extensions_this_month"`
	RevisionCount       int `json:"revision_count"`
	TeamMembers         int `json:"team_members"`
}

type CanPerformRequest struct {
	Action  string         `json:"action" binding:"required"`
	Context *ActionContext `json:"context"`
}

type UpgradeRequest struct {
	TargetPlan string `json:"target_plan" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
}

type UpgradeResult struct {
	Subscription  *model.Subscription `json:"subscription"`
	TokensGranted int                 `json:"tokens_granted"`
	NewPlan       string              `json:"new_plan"`
}

// AllocationResult accumulates per-user outcomes of a monthly batch run.
type AllocationResult struct {
	Processed int      `json:"processed"`
	Credited  int      `json:"credited"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

type ExpirationResult struct {
	Action    string     `json:"action"` // none, downgraded, grace_period
	Plan      string     `json:"plan"`
	PeriodEnd *time.Time `json:"period_end,omitempty"`
}
