// Package gateway wraps the remote accounting procedures that own all durable
// token state. Balance mutations are atomic on the database side; this layer
// only issues calls and normalizes failures into a small error taxonomy.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Credit transaction types accepted by add_tokens.
const (
	CreditPurchase = "purchase"
	CreditBonus    = "bonus"
	CreditRefund   = "refund"
	CreditReset    = "reset"
)

var (
	// ErrNoProfile means the accounting backend has no row for the user yet.
	ErrNoProfile = errors.New("no token profile for user")
	// ErrProfileExists is returned by CreateProfile when another caller won
	// the bootstrap race. Callers treat it as success.
	ErrProfileExists = errors.New("token profile already exists")
)

// RejectedError is a business rejection from the accounting backend, e.g.
// insufficient balance. Distinct from transport failures: the call reached
// the backend and the backend said no.
type RejectedError struct {
	Reason          string
	TokensNeeded    int
	TokensAvailable int
}

func (e *RejectedError) Error() string {
	if e.TokensNeeded > 0 {
		return fmt.Sprintf("accounting rejected: %s (need %d, have %d)",
			e.Reason, e.TokensNeeded, e.TokensAvailable)
	}
	return fmt.Sprintf("accounting rejected: %s", e.Reason)
}

// TransportError wraps connectivity or driver failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("accounting backend unavailable during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TokenInfo mirrors the get_user_token_info result row.
type TokenInfo struct {
	CurrentTokens   int
	TotalTokensUsed int
	TokensResetAt   *time.Time
	Plan            PlanInfo
	Subscription    *SubscriptionInfo
}

type PlanInfo struct {
	Name           string
	TokensPerMonth int
	IsUnlimited    bool
}

type SubscriptionInfo struct {
	Status           string
	CurrentPeriodEnd time.Time
}

type DeductOutcome struct {
	TokensRemaining int
	Unlimited       bool
	TransactionID   string
}

type CreditOutcome struct {
	TokensAdded   int
	NewBalance    int
	TransactionID string
}

// Transaction is one immutable row of the accounting ledger.
type Transaction struct {
	ID           string
	Amount       int // negative = deduction, positive = addition
	Type         string
	Description  string
	BalanceAfter int
	ReferenceID  *string
	CreatedAt    time.Time
}

// Accounting is the remote procedure surface. Implementations perform no
// retries; sequencing of concurrent mutations on the same account is the
// backend's responsibility.
type Accounting interface {
	// FetchBalance returns ErrNoProfile (possibly wrapped) when the user has
	// no accounting row yet.
	FetchBalance(ctx context.Context, userID int64) (*TokenInfo, error)

	// Deduct asks the backend to atomically subtract amount. The backend is
	// the authority on whether the user can afford it.
	Deduct(ctx context.Context, userID int64, amount int, description, referenceID string) (*DeductOutcome, error)

	// Credit atomically adds amount with the given transaction type.
	Credit(ctx context.Context, userID int64, amount int, creditType, description string, subscriptionID int64) (*CreditOutcome, error)

	// History returns up to limit transactions, newest first.
	History(ctx context.Context, userID int64, limit int) ([]Transaction, error)

	// CreateProfile bootstraps a fresh accounting row with the initial free
	// allotment. Returns ErrProfileExists if the row already exists.
	CreateProfile(ctx context.Context, userID int64, initialTokens int) error

	// Ping verifies connectivity without touching user data.
	Ping(ctx context.Context) error
}
