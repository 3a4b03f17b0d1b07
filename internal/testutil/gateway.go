package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kromio/kromio-server/internal/gateway"
)

// FakeAccount is the in-memory state behind one user in FakeAccounting.
type FakeAccount struct {
	Tokens         int
	TotalUsed      int
	PlanName       string
	TokensPerMonth int
	IsUnlimited    bool
	Transactions   []gateway.Transaction
}

// FakeAccounting is an in-memory stand-in for the remote accounting backend.
// All methods are safe for concurrent use.
type FakeAccounting struct {
	mu       sync.Mutex
	accounts map[int64]*FakeAccount
	nextTxID int

	// CreateCalls counts CreateProfile invocations, including ones that
	// returned ErrProfileExists.
	CreateCalls int

	// Error overrides. When set, the corresponding method returns the error
	// instead of touching state.
	FetchErr  error
	DeductErr error
	CreditErr error
	CreateErr error
	PingErr   error

	// FailFetches makes the next N FetchBalance calls fail with FailFetchErr
	// (or a TransportError when unset) before behaving normally. Used to
	// simulate read-after-write lag.
	FailFetches  int
	FailFetchErr error

	// CreateDelay stalls CreateProfile before it touches state, widening the
	// window in which concurrent bootstrap callers can pile up.
	CreateDelay time.Duration
}

func NewFakeAccounting() *FakeAccounting {
	return &FakeAccounting{
		accounts: make(map[int64]*FakeAccount),
	}
}

// Seed installs an account with the given balance and plan.
func (f *FakeAccounting) Seed(userID int64, tokens int, planName string, tokensPerMonth int, unlimited bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[userID] = &FakeAccount{
		Tokens:         tokens,
		PlanName:       planName,
		TokensPerMonth: tokensPerMonth,
		IsUnlimited:    unlimited,
	}
}

// Account returns the current state for a user, or nil.
func (f *FakeAccounting) Account(userID int64) *FakeAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[userID]
}

func (f *FakeAccounting) FetchBalance(ctx context.Context, userID int64) (*gateway.TokenInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailFetches > 0 {
		f.FailFetches--
		if f.FailFetchErr != nil {
			return nil, f.FailFetchErr
		}
		return nil, &gateway.TransportError{Op: "get_user_token_info", Err: context.DeadlineExceeded}
	}
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}

	acct, ok := f.accounts[userID]
	if !ok {
		return nil, gateway.ErrNoProfile
	}

	return &gateway.TokenInfo{
		CurrentTokens:   acct.Tokens,
		TotalTokensUsed: acct.TotalUsed,
		Plan: gateway.PlanInfo{
			Name:           acct.PlanName,
			TokensPerMonth: acct.TokensPerMonth,
			IsUnlimited:    acct.IsUnlimited,
		},
	}, nil
}

func (f *FakeAccounting) Deduct(ctx context.Context, userID int64, amount int, description, referenceID string) (*gateway.DeductOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeductErr != nil {
		return nil, f.DeductErr
	}

	acct, ok := f.accounts[userID]
	if !ok {
		return nil, gateway.ErrNoProfile
	}

	if acct.IsUnlimited {
		return &gateway.DeductOutcome{
			TokensRemaining: acct.Tokens,
			Unlimited:       true,
			TransactionID:   f.txID(),
		}, nil
	}

	if acct.Tokens < amount {
		return nil, &gateway.RejectedError{
			Reason:          "insufficient tokens",
			TokensNeeded:    amount,
			TokensAvailable: acct.Tokens,
		}
	}

	acct.Tokens -= amount
	acct.TotalUsed += amount
	txID := f.txID()
	acct.Transactions = append(acct.Transactions, gateway.Transaction{
		ID:           txID,
		Amount:       -amount,
		Type:         "deduction",
		Description:  description,
		BalanceAfter: acct.Tokens,
		CreatedAt:    time.Now(),
	})

	return &gateway.DeductOutcome{
		TokensRemaining: acct.Tokens,
		TransactionID:   txID,
	}, nil
}

func (f *FakeAccounting) Credit(ctx context.Context, userID int64, amount int, creditType, description string, subscriptionID int64) (*gateway.CreditOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreditErr != nil {
		return nil, f.CreditErr
	}

	acct, ok := f.accounts[userID]
	if !ok {
		return nil, gateway.ErrNoProfile
	}

	acct.Tokens += amount
	txID := f.txID()
	acct.Transactions = append(acct.Transactions, gateway.Transaction{
		ID:           txID,
		Amount:       amount,
		Type:         creditType,
		Description:  description,
		BalanceAfter: acct.Tokens,
		CreatedAt:    time.Now(),
	})

	return &gateway.CreditOutcome{
		TokensAdded:   amount,
		NewBalance:    acct.Tokens,
		TransactionID: txID,
	}, nil
}

func (f *FakeAccounting) History(ctx context.Context, userID int64, limit int) ([]gateway.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[userID]
	if !ok {
		return nil, gateway.ErrNoProfile
	}

	// Newest first.
	txs := make([]gateway.Transaction, 0, limit)
	for i := len(acct.Transactions) - 1; i >= 0 && len(txs) < limit; i-- {
		txs = append(txs, acct.Transactions[i])
	}
	return txs, nil
}

func (f *FakeAccounting) CreateProfile(ctx context.Context, userID int64, initialTokens int) error {
	if f.CreateDelay > 0 {
		time.Sleep(f.CreateDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls++

	if f.CreateErr != nil {
		return f.CreateErr
	}

	if _, ok := f.accounts[userID]; ok {
		return gateway.ErrProfileExists
	}

	f.accounts[userID] = &FakeAccount{
		Tokens:         initialTokens,
		PlanName:       "free",
		TokensPerMonth: initialTokens,
	}
	return nil
}

func (f *FakeAccounting) Ping(ctx context.Context) error {
	return f.PingErr
}

func (f *FakeAccounting) txID() string {
	f.nextTxID++
	return fmt.Sprintf("tx-%d", f.nextTxID)
}
