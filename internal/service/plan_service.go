package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/gateway"
	"github.com/kromio/kromio-server/internal/model"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/repository"
)

var (
	ErrUnknownPlan  = errors.New("unknown plan")
	ErrNotAnUpgrade = errors.New("target plan is not an upgrade")
)

// Actions recognized by CanPerform.
const (
	ActionGenerateExtension = "generate_extension"
	ActionReviseExtension   = "revise_extension"
	ActionAccessAnalytics   = "access_analytics"
	ActionRemoveBranding    = "remove_branding"
	ActionTeamCollaboration = "team_collaboration"
	ActionAPIAccess         = "api_access"
)

// featureActions maps feature-gated actions to their capability tag.
var featureActions = map[string]string{
	ActionAccessAnalytics: config.FeatureAnalytics,
	ActionRemoveBranding:  config.FeatureRemoveBranding,
	ActionAPIAccess:       config.FeatureAPIAccess,
}

// PlanService owns the static plan catalog and all permission decisions.
// Balance lookups are delegated to the TokenService; no per-user state lives
// here.
type PlanService struct {
	tokens     *TokenService
	userRepo   *repository.UserRepository
	subRepo    *repository.SubscriptionRepository
	changeRepo *repository.PlanChangeRepository
	cfg        *config.Config
}

func NewPlanService(
	tokens *TokenService,
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	changeRepo *repository.PlanChangeRepository,
	cfg *config.Config,
) *PlanService {
	return &PlanService{
		tokens:     tokens,
		userRepo:   userRepo,
		subRepo:    subRepo,
		changeRepo: changeRepo,
		cfg:        cfg,
	}
}

// GetAllPlans returns the catalog in hierarchy order.
func (s *PlanService) GetAllPlans() []dto.PlanSummary {
	plans := make([]dto.PlanSummary, 0, len(config.PlanOrder))
	for _, name := range config.PlanOrder {
		if cfg, ok := s.cfg.Plans[name]; ok {
			plans = append(plans, dto.PlanSummary{Name: name, Config: cfg})
		}
	}
	return plans
}

// GetPlanConfig looks up one catalog entry.
func (s *PlanService) GetPlanConfig(name string) (config.PlanConfig, bool) {
	cfg, ok := s.cfg.Plans[name]
	return cfg, ok
}

// GetUserPlan merges the catalog entry for the user's plan with live token
// and subscription data.
func (s *PlanService) GetUserPlan(ctx context.Context, userID int64) (*dto.UserPlan, error) {
	plan, err := s.tokens.PlanDetails(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	plan.Subscription = sub
	return plan, nil
}

// CanPerform decides whether the user may take the given action. Denials
// always carry a reason and whether upgrading would help.
func (s *PlanService) CanPerform(ctx context.Context, userID int64, action string, actx *dto.ActionContext) (*dto.PermissionDecision, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if actx == nil {
		actx = &dto.ActionContext{}
	}

	balance, err := s.tokens.CheckBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, ok := s.cfg.Plans[balance.PlanName]
	if !ok {
		plan = s.cfg.Plans[config.PlanFree]
	}

	switch action {
	case ActionGenerateExtension:
		return s.decideGenerate(plan, balance, actx), nil
	case ActionReviseExtension:
		return s.decideRevise(plan, actx), nil
	case ActionTeamCollaboration:
		return decideLimit(plan.Limits.TeamMembers, actx.TeamMembers,
			"team member limit reached"), nil
	case ActionAccessAnalytics, ActionRemoveBranding, ActionAPIAccess:
		tag := featureActions[action]
		if plan.HasFeature(tag) {
			return &dto.PermissionDecision{Allowed: true}, nil
		}
		return &dto.PermissionDecision{
			Allowed:         false,
			Reason:          fmt.Sprintf("your plan does not include %s", tag),
			RequiresUpgrade: true,
		}, nil
	default:
		return &dto.PermissionDecision{
			Allowed: false,
			Reason:  "unknown action",
		}, nil
	}
}

// decideGenerate checks tokens before the monthly limit; the first failing
// condition determines the reported reason.
func (s *PlanService) decideGenerate(plan config.PlanConfig, balance *dto.TokenBalance, actx *dto.ActionContext) *dto.PermissionDecision {
	if !balance.IsUnlimited && balance.Current < 1 {
		return &dto.PermissionDecision{
			Allowed:         false,
			Reason:          "insufficient tokens",
			RequiresUpgrade: true,
			TokensNeeded:    1,
			TokensAvailable: balance.Current,
		}
	}

	limit := plan.Limits.ExtensionsPerMonth
	if limit != -1 && actx.ExtensionsThisMonth >= limit {
		return &dto.PermissionDecision{
			Allowed:         false,
			Reason:          "monthly extension limit reached",
			RequiresUpgrade: true,
			Limit:           limit,
			CurrentUsage:    actx.ExtensionsThisMonth,
		}
	}

	return &dto.PermissionDecision{Allowed: true}
}

func (s *PlanService) decideRevise(plan config.PlanConfig, actx *dto.ActionContext) *dto.PermissionDecision {
	if plan.HasFeature(config.FeatureUnlimitedRevisions) {
		return &dto.PermissionDecision{Allowed: true}
	}
	return decideLimit(plan.Limits.RevisionsPerExtension, actx.RevisionCount,
		"revision limit reached for this extension")
}

func decideLimit(limit, current int, reason string) *dto.PermissionDecision {
	if limit == -1 || current < limit {
		return &dto.PermissionDecision{Allowed: true}
	}
	return &dto.PermissionDecision{
		Allowed:         false,
		Reason:          reason,
		RequiresUpgrade: true,
		Limit:           limit,
		CurrentUsage:    current,
	}
}

// UpgradePlan moves the user to a strictly higher tier. The two steps
// (subscription insert, token allocation) are not one transaction; each
// attempt is logged as a PlanChange so partial failures are visible and a
// failed allocation triggers a compensating delete of the subscription.
func (s *PlanService) UpgradePlan(ctx context.Context, userID int64, targetPlan, paymentRef string) (*dto.UpgradeResult, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	targetCfg, ok := s.cfg.Plans[targetPlan]
	if !ok {
		return nil, ErrUnknownPlan
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	currentRank := config.PlanRank(user.Plan)
	targetRank := config.PlanRank(targetPlan)
	if targetRank <= currentRank {
		return nil, ErrNotAnUpgrade
	}

	// A user holds at most one active subscription; the new tier supersedes
	// any existing one.
	prior, err := s.subRepo.GetActiveByUser(userID)
	if err != nil {
		return nil, err
	}

	change := &model.PlanChange{
		UserID:     userID,
		FromPlan:   user.Plan,
		ToPlan:     targetPlan,
		State:      model.ChangeStatePending,
		PaymentRef: paymentRef,
	}
	if err := s.changeRepo.Create(change); err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &model.Subscription{
		UserID:             userID,
		Plan:               targetPlan,
		Status:             model.SubStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		AmountCents:        targetCfg.PriceMonthlyCents,
		PaymentRef:         paymentRef,
	}
	if err := s.subRepo.Create(sub); err != nil {
		_ = s.changeRepo.SetState(change.ID, model.ChangeStateRolledBack, err.Error())
		return nil, err
	}
	if prior != nil {
		if err := s.subRepo.UpdateStatus(prior.ID, model.SubStatusCanceled); err != nil {
			_ = s.subRepo.Delete(sub.ID)
			_ = s.changeRepo.SetState(change.ID, model.ChangeStateRolledBack, err.Error())
			return nil, err
		}
	}
	if err := s.changeRepo.SetSubscription(change.ID, sub.ID); err != nil {
		return nil, err
	}
	if err := s.changeRepo.SetState(change.ID, model.ChangeStateSubscribed, ""); err != nil {
		return nil, err
	}

	granted := 0
	if targetCfg.TokensPerMonth > 0 {
		_, err := s.tokens.Credit(ctx, ActorSystem, userID, targetCfg.TokensPerMonth,
			gateway.CreditPurchase, fmt.Sprintf("upgrade to %s plan", targetPlan), sub.ID)
		if err != nil {
			// Compensate: remove the just-created subscription and reinstate
			// the superseded one. If even that fails, flag the row for the
			// reconciliation sweep.
			if rbErr := s.rollbackSubscription(sub.ID, prior); rbErr != nil {
				_ = s.changeRepo.SetState(change.ID, model.ChangeStateNeedsReconciliation,
					fmt.Sprintf("allocation failed: %v; rollback failed: %v", err, rbErr))
			} else {
				_ = s.changeRepo.SetState(change.ID, model.ChangeStateRolledBack, err.Error())
			}
			return nil, fmt.Errorf("token allocation failed: %w", err)
		}
		granted = targetCfg.TokensPerMonth
	}

	if err := s.userRepo.SetPlan(userID, targetPlan); err != nil {
		_ = s.changeRepo.SetState(change.ID, model.ChangeStateNeedsReconciliation, err.Error())
		return nil, err
	}
	if err := s.changeRepo.SetState(change.ID, model.ChangeStateAllocated, ""); err != nil {
		return nil, err
	}

	return &dto.UpgradeResult{
		Subscription:  sub,
		TokensGranted: granted,
		NewPlan:       targetPlan,
	}, nil
}

// rollbackSubscription undoes the subscription step of a failed upgrade:
// the new row is deleted and the superseded one becomes active again.
func (s *PlanService) rollbackSubscription(newSubID int64, prior *model.Subscription) error {
	if err := s.subRepo.Delete(newSubID); err != nil {
		return err
	}
	if prior != nil {
		return s.subRepo.UpdateStatus(prior.ID, model.SubStatusActive)
	}
	return nil
}

// AllocateMonthlyTokens tops active subscriptions up to their plan's included
// amount. Balances already at or above target are left alone: there is no
// rollover and no claw-back. One failing user does not abort the batch.
func (s *PlanService) AllocateMonthlyTokens(ctx context.Context, subs []model.Subscription) (*dto.AllocationResult, error) {
	if subs == nil {
		var err error
		subs, err = s.subRepo.ListActive()
		if err != nil {
			return nil, err
		}
	}

	result := &dto.AllocationResult{}
	for _, sub := range subs {
		result.Processed++

		planCfg, ok := s.cfg.Plans[sub.Plan]
		if !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("user %d: unknown plan %q", sub.UserID, sub.Plan))
			continue
		}
		if planCfg.IsUnlimited {
			result.Skipped++
			continue
		}

		balance, err := s.tokens.CheckBalance(ctx, sub.UserID)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("user %d: balance check failed: %v", sub.UserID, err))
			continue
		}

		deficit := planCfg.TokensPerMonth - balance.Current
		if deficit <= 0 {
			result.Skipped++
			continue
		}

		_, err = s.tokens.Credit(ctx, ActorSystem, sub.UserID, deficit,
			gateway.CreditReset, "monthly token allocation", sub.ID)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("user %d: credit failed: %v", sub.UserID, err))
			continue
		}
		result.Credited++
	}
	return result, nil
}

// HandleExpiration settles one user's subscription after its period end:
// downgrade to free when the user asked to cancel, otherwise mark past_due
// and leave tokens untouched while billing retries.
func (s *PlanService) HandleExpiration(ctx context.Context, userID int64) (*dto.ExpirationResult, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	sub, err := s.subRepo.GetActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || time.Now().Before(sub.CurrentPeriodEnd) {
		return &dto.ExpirationResult{Action: "none"}, nil
	}

	if sub.CancelAtPeriodEnd {
		if err := s.subRepo.UpdateStatus(sub.ID, model.SubStatusCanceled); err != nil {
			return nil, err
		}
		if err := s.userRepo.SetPlan(userID, config.PlanFree); err != nil {
			return nil, err
		}
		return &dto.ExpirationResult{
			Action:    "downgraded",
			Plan:      config.PlanFree,
			PeriodEnd: &sub.CurrentPeriodEnd,
		}, nil
	}

	if err := s.subRepo.UpdateStatus(sub.ID, model.SubStatusPastDue); err != nil {
		return nil, err
	}
	return &dto.ExpirationResult{
		Action:    "grace_period",
		Plan:      sub.Plan,
		PeriodEnd: &sub.CurrentPeriodEnd,
	}, nil
}

// PendingReconciliation lists upgrade attempts that need operator attention.
func (s *PlanService) PendingReconciliation() ([]model.PlanChange, error) {
	return s.changeRepo.ListByState(model.ChangeStateNeedsReconciliation)
}
