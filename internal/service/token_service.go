package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/gateway"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/pubsub"
	"github.com/kromio/kromio-server/internal/pkg/ratelimit"
)

var (
	ErrInvalidUserID    = errors.New("user id is required")
	ErrInvalidAmount    = errors.New("amount must be a positive integer")
	ErrInvalidCredit    = errors.New("unknown credit type")
	ErrIdentityMismatch = errors.New("caller does not match target user")
	ErrRateLimited      = errors.New("rate limit exceeded, try again later")
)

// ActorSystem marks privileged internal callers (allocation batch, admin
// grants). The reset credit path is restricted to it.
const ActorSystem int64 = 0

// Rate-limit operation kinds. Each gets its own sliding window per user.
const (
	opCheck    = "check"
	opDeduct   = "deduct"
	opCredit   = "credit"
	opHistory  = "history"
	opValidate = "validate"
)

const (
	defaultHistoryMax       = 200
	defaultBootstrapRetries = 2
	defaultBootstrapBackoff = 200 * time.Millisecond
)

// InsufficientTokensError carries the shortfall so the UI can show an
// actionable upgrade prompt.
type InsufficientTokensError struct {
	Needed    int
	Available int
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: need %d, have %d", e.Needed, e.Available)
}

// TokenService enforces the business rules around the remote accounting
// backend: input validation, local rate limiting, lazy profile bootstrap and
// response normalization. It holds no balance state of its own; the remote
// procedures are the single authority on whether a mutation is allowed, so
// there is no local check-then-act across the network boundary.
type TokenService struct {
	acct    gateway.Accounting
	limiter *ratelimit.Window
	flight  singleflight.Group
	events  *pubsub.Publisher // optional, nil disables balance events
	cfg     *config.Config

	historyMax int
	retries    int
	backoff    time.Duration
}

func NewTokenService(acct gateway.Accounting, limiter *ratelimit.Window, events *pubsub.Publisher, cfg *config.Config) *TokenService {
	s := &TokenService{
		acct:       acct,
		limiter:    limiter,
		events:     events,
		cfg:        cfg,
		historyMax: cfg.Tokens.HistoryMaxLimit,
		retries:    cfg.Tokens.BootstrapRetries,
		backoff:    time.Duration(cfg.Tokens.BootstrapBackoffMS) * time.Millisecond,
	}
	if s.historyMax <= 0 {
		s.historyMax = defaultHistoryMax
	}
	if s.retries <= 0 {
		s.retries = defaultBootstrapRetries
	}
	if s.backoff <= 0 {
		s.backoff = defaultBootstrapBackoff
	}
	return s
}

// CheckBalance returns the user's normalized balance, bootstrapping the
// accounting profile on first access.
func (s *TokenService) CheckBalance(ctx context.Context, userID int64) (*dto.TokenBalance, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if !s.limiter.Allow(limitKey(userID, opCheck)) {
		return nil, ErrRateLimited
	}

	info, err := s.fetchInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	return formatBalance(info), nil
}

// Deduct spends tokens for one generation action. The remote operation is the
// authority on affordability; no balance is checked locally first.
func (s *TokenService) Deduct(ctx context.Context, callerID, userID int64, amount int, description, referenceID string) (*dto.DeductResult, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if callerID != ActorSystem && callerID != userID {
		return nil, ErrIdentityMismatch
	}
	if !s.limiter.Allow(limitKey(userID, opDeduct)) {
		return nil, ErrRateLimited
	}

	out, err := s.acct.Deduct(ctx, userID, amount, description, referenceID)
	if errors.Is(err, gateway.ErrNoProfile) {
		// Brand-new user deducting before any balance check: bootstrap and
		// retry the deduction once.
		if _, berr := s.bootstrap(ctx, userID); berr != nil {
			return nil, berr
		}
		out, err = s.acct.Deduct(ctx, userID, amount, description, referenceID)
	}
	if err != nil {
		var rejected *gateway.RejectedError
		if errors.As(err, &rejected) && rejected.TokensNeeded > 0 {
			return nil, &InsufficientTokensError{
				Needed:    rejected.TokensNeeded,
				Available: rejected.TokensAvailable,
			}
		}
		return nil, err
	}

	s.publishEvent(ctx, &pubsub.BalanceEvent{
		Type:          pubsub.EventDeducted,
		UserID:        userID,
		Amount:        -amount,
		Balance:       out.TokensRemaining,
		Unlimited:     out.Unlimited,
		TransactionID: out.TransactionID,
		Description:   description,
	})

	return &dto.DeductResult{
		TokensRemaining: out.TokensRemaining,
		Unlimited:       out.Unlimited,
		TransactionID:   out.TransactionID,
	}, nil
}

// Credit adds tokens. The reset type is reserved for privileged callers (the
// monthly allocation batch); other types require the caller to be the user.
func (s *TokenService) Credit(ctx context.Context, callerID, userID int64, amount int, creditType, description string, subscriptionID int64) (*dto.CreditResult, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	switch creditType {
	case gateway.CreditPurchase, gateway.CreditBonus, gateway.CreditRefund:
		if callerID != ActorSystem && callerID != userID {
			return nil, ErrIdentityMismatch
		}
	case gateway.CreditReset:
		if callerID != ActorSystem {
			return nil, ErrIdentityMismatch
		}
	default:
		return nil, ErrInvalidCredit
	}
	if !s.limiter.Allow(limitKey(userID, opCredit)) {
		return nil, ErrRateLimited
	}

	out, err := s.acct.Credit(ctx, userID, amount, creditType, description, subscriptionID)
	if errors.Is(err, gateway.ErrNoProfile) {
		if _, berr := s.bootstrap(ctx, userID); berr != nil {
			return nil, berr
		}
		out, err = s.acct.Credit(ctx, userID, amount, creditType, description, subscriptionID)
	}
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, &pubsub.BalanceEvent{
		Type:          pubsub.EventCredited,
		UserID:        userID,
		Amount:        out.TokensAdded,
		Balance:       out.NewBalance,
		TransactionID: out.TransactionID,
		Description:   description,
	})

	return &dto.CreditResult{
		TokensAdded:   out.TokensAdded,
		NewBalance:    out.NewBalance,
		TransactionID: out.TransactionID,
	}, nil
}

// History returns the user's transactions, newest first. The limit is
// clamped to the configured maximum regardless of what was requested.
func (s *TokenService) History(ctx context.Context, userID int64, limit int) ([]dto.TokenTransaction, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if !s.limiter.Allow(limitKey(userID, opHistory)) {
		return nil, ErrRateLimited
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > s.historyMax {
		limit = s.historyMax
	}

	txs, err := s.acct.History(ctx, userID, limit)
	if err != nil {
		if errors.Is(err, gateway.ErrNoProfile) {
			return []dto.TokenTransaction{}, nil
		}
		return nil, err
	}

	out := make([]dto.TokenTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, dto.TokenTransaction{
			ID:           tx.ID,
			Amount:       tx.Amount,
			Type:         tx.Type,
			Description:  tx.Description,
			BalanceAfter: tx.BalanceAfter,
			ReferenceID:  tx.ReferenceID,
			CreatedAt:    tx.CreatedAt,
		})
	}
	return out, nil
}

// ValidateOperation is a read-only probe: can the user afford requiredTokens?
// Unlimited plans always can, whatever their numeric balance says.
func (s *TokenService) ValidateOperation(ctx context.Context, userID int64, requiredTokens int) (*dto.ValidationResult, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if requiredTokens <= 0 {
		return nil, ErrInvalidAmount
	}
	if !s.limiter.Allow(limitKey(userID, opValidate)) {
		return nil, ErrRateLimited
	}

	info, err := s.fetchInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	if info.Plan.IsUnlimited {
		return &dto.ValidationResult{CanPerform: true, Unlimited: true}, nil
	}

	shortfall := requiredTokens - info.CurrentTokens
	if shortfall < 0 {
		shortfall = 0
	}
	return &dto.ValidationResult{
		CanPerform: info.CurrentTokens >= requiredTokens,
		Shortfall:  shortfall,
	}, nil
}

// PlanDetails composes the catalog entry for the user's plan with the live
// balance and subscription snapshot from the accounting backend.
func (s *TokenService) PlanDetails(ctx context.Context, userID int64) (*dto.UserPlan, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if !s.limiter.Allow(limitKey(userID, opCheck)) {
		return nil, ErrRateLimited
	}

	info, err := s.fetchInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	planName := info.Plan.Name
	planCfg, ok := s.cfg.Plans[planName]
	if !ok {
		planName = config.PlanFree
		planCfg = s.cfg.Plans[planName]
	}

	return &dto.UserPlan{
		Type:   planName,
		Config: planCfg,
		Tokens: formatBalance(info),
	}, nil
}

// HealthCheck verifies connectivity to the accounting backend with a trivial
// read. It touches no user data.
func (s *TokenService) HealthCheck(ctx context.Context) *dto.HealthStatus {
	if err := s.acct.Ping(ctx); err != nil {
		return &dto.HealthStatus{Status: "degraded", Backend: err.Error()}
	}
	return &dto.HealthStatus{Status: "ok", Backend: "reachable"}
}

// fetchInfo reads the balance, lazily bootstrapping the profile when the
// backend has never seen the user.
func (s *TokenService) fetchInfo(ctx context.Context, userID int64) (*gateway.TokenInfo, error) {
	info, err := s.acct.FetchBalance(ctx, userID)
	if errors.Is(err, gateway.ErrNoProfile) {
		return s.bootstrap(ctx, userID)
	}
	return info, err
}

// bootstrap creates the accounting profile at most once per user per process:
// concurrent callers for the same user share one creation attempt through the
// single-flight group instead of racing duplicate inserts.
func (s *TokenService) bootstrap(ctx context.Context, userID int64) (*gateway.TokenInfo, error) {
	v, err, _ := s.flight.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		initial := s.cfg.Plans[config.PlanFree].TokensPerMonth

		if err := s.acct.CreateProfile(ctx, userID, initial); err != nil {
			// Losing the creation race means the profile exists, which is
			// what we wanted.
			if !errors.Is(err, gateway.ErrProfileExists) {
				return nil, err
			}
		}

		// Bounded re-fetch to tolerate read-after-write lag.
		var info *gateway.TokenInfo
		var err error
		for attempt := 0; attempt < s.retries; attempt++ {
			if attempt > 0 {
				time.Sleep(s.backoff)
			}
			info, err = s.acct.FetchBalance(ctx, userID)
			if err == nil {
				return info, nil
			}
			if !errors.Is(err, gateway.ErrNoProfile) {
				return nil, err
			}
		}
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*gateway.TokenInfo), nil
}

func (s *TokenService) publishEvent(ctx context.Context, event *pubsub.BalanceEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBalance(ctx, event); err != nil {
		log.Printf("Failed to publish balance event for user %d: %v", event.UserID, err)
	}
}

func formatBalance(info *gateway.TokenInfo) *dto.TokenBalance {
	return &dto.TokenBalance{
		Current:     info.CurrentTokens,
		TotalUsed:   info.TotalTokensUsed,
		ResetDate:   info.TokensResetAt,
		IsUnlimited: info.Plan.IsUnlimited,
		PlanName:    info.Plan.Name,
	}
}

func limitKey(userID int64, op string) string {
	return strconv.FormatInt(userID, 10) + ":" + op
}
