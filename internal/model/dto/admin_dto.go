package dto

type GrantTokensRequest struct {
	Amount      int    `json:"amount" binding:"required"`
	Type        string `json:"type" binding:"required"` // bonus or reset
	Description string `json:"description"`
}

type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

type SupportMessageRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Body    string `json:"body" binding:"required"`
}

type ResolveSupportRequest struct {
	Reply string `json:"reply" binding:"required"`
}

// AdminAnalytics is the dashboard summary for the admin UI.
type AdminAnalytics struct {
	TotalUsers          int64            `json:"total_users"`
	VerifiedUsers       int64            `json:"verified_users"`
	ActiveSubscriptions map[string]int64 `json:"active_subscriptions"`
	OpenSupportMessages int64            `json:"open_support_messages"`
	PendingPlanChanges  int64            `json:"pending_plan_changes"`
}

type WelcomeEmailRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	Name   string `json:"name" binding:"required"`
}
