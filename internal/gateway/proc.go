package gateway

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Error codes the stored procedures report in their result rows.
const (
	procErrInsufficientTokens = "insufficient_tokens"
	procErrNoProfile          = "no_profile"
)

// ProcGateway invokes the accounting stored procedures through the database
// connection. The procedures themselves live in the database and guarantee
// that each balance mutation and its ledger insert commit together.
type ProcGateway struct {
	db *gorm.DB
}

func NewProcGateway(db *gorm.DB) *ProcGateway {
	return &ProcGateway{db: db}
}

type tokenInfoRow struct {
	CurrentTokens      int        `gorm:"column:current_tokens"`
	TotalTokensUsed    int        `gorm:"column:total_tokens_used"`
	TokensResetAt      *time.Time `gorm:"column:tokens_reset_at"`
	PlanName           string     `gorm:"column:plan_name"`
	TokensPerMonth     int        `gorm:"column:tokens_per_month"`
	IsUnlimited        bool       `gorm:"column:is_unlimited"`
	SubscriptionStatus *string    `gorm:"column:subscription_status"`
	CurrentPeriodEnd   *time.Time `gorm:"column:current_period_end"`
}

func (g *ProcGateway) FetchBalance(ctx context.Context, userID int64) (*TokenInfo, error) {
	var row tokenInfoRow
	res := g.db.WithContext(ctx).Raw("CALL get_user_token_info(?)", userID).Scan(&row)
	if res.Error != nil {
		return nil, &TransportError{Op: "get_user_token_info", Err: res.Error}
	}
	if res.RowsAffected == 0 || row.PlanName == "" {
		return nil, ErrNoProfile
	}

	info := &TokenInfo{
		CurrentTokens:   row.CurrentTokens,
		TotalTokensUsed: row.TotalTokensUsed,
		TokensResetAt:   row.TokensResetAt,
		Plan: PlanInfo{
			Name:           row.PlanName,
			TokensPerMonth: row.TokensPerMonth,
			IsUnlimited:    row.IsUnlimited,
		},
	}
	if row.SubscriptionStatus != nil && row.CurrentPeriodEnd != nil {
		info.Subscription = &SubscriptionInfo{
			Status:           *row.SubscriptionStatus,
			CurrentPeriodEnd: *row.CurrentPeriodEnd,
		}
	}
	return info, nil
}

type deductRow struct {
	Success         bool   `gorm:"column:success"`
	TokensRemaining int    `gorm:"column:tokens_remaining"`
	Unlimited       bool   `gorm:"column:unlimited"`
	TransactionID   string `gorm:"column:transaction_id"`
	ErrorCode       string `gorm:"column:error_code"`
	TokensNeeded    int    `gorm:"column:tokens_needed"`
}

func (g *ProcGateway) Deduct(ctx context.Context, userID int64, amount int, description, referenceID string) (*DeductOutcome, error) {
	var row deductRow
	res := g.db.WithContext(ctx).
		Raw("CALL deduct_tokens(?, ?, ?, ?)", userID, amount, description, nullable(referenceID)).
		Scan(&row)
	if res.Error != nil {
		return nil, &TransportError{Op: "deduct_tokens", Err: res.Error}
	}

	if !row.Success {
		switch row.ErrorCode {
		case procErrNoProfile:
			return nil, ErrNoProfile
		case procErrInsufficientTokens:
			return nil, &RejectedError{
				Reason:          "insufficient tokens",
				TokensNeeded:    row.TokensNeeded,
				TokensAvailable: row.TokensRemaining,
			}
		default:
			return nil, &RejectedError{Reason: row.ErrorCode}
		}
	}

	return &DeductOutcome{
		TokensRemaining: row.TokensRemaining,
		Unlimited:       row.Unlimited,
		TransactionID:   row.TransactionID,
	}, nil
}

type creditRow struct {
	Success       bool   `gorm:"column:success"`
	TokensAdded   int    `gorm:"column:tokens_added"`
	NewBalance    int    `gorm:"column:new_balance"`
	TransactionID string `gorm:"column:transaction_id"`
	ErrorCode     string `gorm:"column:error_code"`
}

func (g *ProcGateway) Credit(ctx context.Context, userID int64, amount int, creditType, description string, subscriptionID int64) (*CreditOutcome, error) {
	var subID interface{}
	if subscriptionID > 0 {
		subID = subscriptionID
	}

	var row creditRow
	res := g.db.WithContext(ctx).
		Raw("CALL add_tokens(?, ?, ?, ?, ?)", userID, amount, creditType, description, subID).
		Scan(&row)
	if res.Error != nil {
		return nil, &TransportError{Op: "add_tokens", Err: res.Error}
	}

	if !row.Success {
		if row.ErrorCode == procErrNoProfile {
			return nil, ErrNoProfile
		}
		return nil, &RejectedError{Reason: row.ErrorCode}
	}

	return &CreditOutcome{
		TokensAdded:   row.TokensAdded,
		NewBalance:    row.NewBalance,
		TransactionID: row.TransactionID,
	}, nil
}

type transactionRow struct {
	ID           string    `gorm:"column:id"`
	Amount       int       `gorm:"column:amount"`
	Type         string    `gorm:"column:transaction_type"`
	Description  string    `gorm:"column:description"`
	BalanceAfter int       `gorm:"column:balance_after"`
	ReferenceID  *string   `gorm:"column:reference_id"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (g *ProcGateway) History(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	var rows []transactionRow
	res := g.db.WithContext(ctx).
		Raw("CALL get_token_transactions(?, ?)", userID, limit).
		Scan(&rows)
	if res.Error != nil {
		return nil, &TransportError{Op: "get_token_transactions", Err: res.Error}
	}

	txs := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		txs = append(txs, Transaction{
			ID:           r.ID,
			Amount:       r.Amount,
			Type:         r.Type,
			Description:  r.Description,
			BalanceAfter: r.BalanceAfter,
			ReferenceID:  r.ReferenceID,
			CreatedAt:    r.CreatedAt,
		})
	}
	return txs, nil
}

func (g *ProcGateway) CreateProfile(ctx context.Context, userID int64, initialTokens int) error {
	err := g.db.WithContext(ctx).Exec("CALL create_token_profile(?, ?)", userID, initialTokens).Error
	if err != nil {
		// MySQL duplicate key means another caller bootstrapped first.
		if isDuplicateKey(err) {
			return ErrProfileExists
		}
		return &TransportError{Op: "create_token_profile", Err: err}
	}
	return nil
}

func (g *ProcGateway) Ping(ctx context.Context) error {
	var one int
	if err := g.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return &TransportError{Op: "ping", Err: err}
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isDuplicateKey(err error) bool {
	return strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
