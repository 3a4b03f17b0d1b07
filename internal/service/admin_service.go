package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kromio/kromio-server/internal/gateway"
	"github.com/kromio/kromio-server/internal/model"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/repository"
)

var ErrInvalidGrantType = errors.New("grant type must be bonus or reset")

// AdminService backs the admin dashboard: user management, token grants and
// usage analytics.
type AdminService struct {
	userRepo    *repository.UserRepository
	subRepo     *repository.SubscriptionRepository
	changeRepo  *repository.PlanChangeRepository
	supportRepo *repository.SupportRepository
	tokens      *TokenService
}

func NewAdminService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	changeRepo *repository.PlanChangeRepository,
	supportRepo *repository.SupportRepository,
	tokens *TokenService,
) *AdminService {
	return &AdminService{
		userRepo:    userRepo,
		subRepo:     subRepo,
		changeRepo:  changeRepo,
		supportRepo: supportRepo,
		tokens:      tokens,
	}
}

func (s *AdminService) ListUsers(page, pageSize int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.userRepo.List(page, pageSize)
}

func (s *AdminService) SetAdmin(userID int64, isAdmin bool) error {
	if _, err := s.userRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.userRepo.SetAdmin(userID, isAdmin)
}

// GrantTokens credits a user on behalf of an administrator. Grants run as the
// system actor, so the identity re-validation in the token layer is skipped.
func (s *AdminService) GrantTokens(ctx context.Context, userID int64, amount int, grantType, description string) (*dto.CreditResult, error) {
	if grantType != gateway.CreditBonus && grantType != gateway.CreditReset {
		return nil, ErrInvalidGrantType
	}
	if description == "" {
		description = "admin grant"
	}
	return s.tokens.Credit(ctx, ActorSystem, userID, amount, grantType, description, 0)
}

// GetAnalytics aggregates the dashboard counters.
func (s *AdminService) GetAnalytics() (*dto.AdminAnalytics, error) {
	total, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	verified, err := s.userRepo.CountVerified()
	if err != nil {
		return nil, err
	}
	byPlan, err := s.subRepo.CountActiveByPlan()
	if err != nil {
		return nil, err
	}
	openSupport, err := s.supportRepo.CountOpen()
	if err != nil {
		return nil, err
	}
	pendingChanges, err := s.changeRepo.CountByState(model.ChangeStateNeedsReconciliation)
	if err != nil {
		return nil, err
	}

	return &dto.AdminAnalytics{
		TotalUsers:          total,
		VerifiedUsers:       verified,
		ActiveSubscriptions: byPlan,
		OpenSupportMessages: openSupport,
		PendingPlanChanges:  pendingChanges,
	}, nil
}

// UserTokenHistory exposes a user's ledger to administrators.
func (s *AdminService) UserTokenHistory(ctx context.Context, userID int64, limit int) ([]dto.TokenTransaction, error) {
	return s.tokens.History(ctx, userID, limit)
}
