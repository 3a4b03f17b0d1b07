package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/model"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/ratelimit"
	"github.com/kromio/kromio-server/internal/repository"
	"github.com/kromio/kromio-server/internal/testutil"
)

func setupPlanService(t *testing.T) (*PlanService, *gorm.DB, *testutil.FakeAccounting) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	acct := testutil.NewFakeAccounting()
	cfg := testConfig()
	tokens := NewTokenService(acct, ratelimit.NewWindow(1000, time.Minute), nil, cfg)

	service := NewPlanService(
		tokens,
		repository.NewUserRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewPlanChangeRepository(db),
		cfg,
	)
	return service, db, acct
}

func TestPlanService_GetAllPlans_HierarchyOrder(t *testing.T) {
	service, _, _ := setupPlanService(t)

	plans := service.GetAllPlans()
	require.Len(t, plans, 4)
	assert.Equal(t, config.PlanFree, plans[0].Name)
	assert.Equal(t, config.PlanStarter, plans[1].Name)
	assert.Equal(t, config.PlanPro, plans[2].Name)
	assert.Equal(t, config.PlanUnlimited, plans[3].Name)
}

func TestPlanService_CanPerform_Generate_TokensCheckedBeforeLimit(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 0, "free", 100, false)

	// Both conditions fail; the token shortfall must be the reported reason.
	decision, err := service.CanPerform(context.Background(), 1, ActionGenerateExtension,
		&dto.ActionContext{ExtensionsThisMonth: 3})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "insufficient tokens", decision.Reason)
	assert.True(t, decision.RequiresUpgrade)
	assert.Equal(t, 1, decision.TokensNeeded)
	assert.Equal(t, 0, decision.TokensAvailable)
}

func TestPlanService_CanPerform_Generate_MonthlyLimit(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 50, "free", 100, false)

	decision, err := service.CanPerform(context.Background(), 1, ActionGenerateExtension,
		&dto.ActionContext{ExtensionsThisMonth: 3})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "monthly extension limit reached", decision.Reason)
	assert.Equal(t, 3, decision.Limit)
	assert.Equal(t, 3, decision.CurrentUsage)
}

func TestPlanService_CanPerform_Generate_Allowed(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 50, "free", 100, false)

	decision, err := service.CanPerform(context.Background(), 1, ActionGenerateExtension,
		&dto.ActionContext{ExtensionsThisMonth: 2})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestPlanService_CanPerform_Generate_UnlimitedIgnoresBalance(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 0, "unlimited", 0, true)

	decision, err := service.CanPerform(context.Background(), 1, ActionGenerateExtension,
		&dto.ActionContext{ExtensionsThisMonth: 9999})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestPlanService_CanPerform_Revise(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 50, "free", 100, false)

	decision, err := service.CanPerform(context.Background(), 1, ActionReviseExtension,
		&dto.ActionContext{RevisionCount: 2})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = service.CanPerform(context.Background(), 1, ActionReviseExtension,
		&dto.ActionContext{RevisionCount: 3})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "revision limit reached for this extension", decision.Reason)
}

func TestPlanService_CanPerform_Revise_UnlimitedRevisionsFeature(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 0, "unlimited", 0, true)

	decision, err := service.CanPerform(context.Background(), 1, ActionReviseExtension,
		&dto.ActionContext{RevisionCount: 500})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestPlanService_CanPerform_FeatureGated(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 50, "free", 100, false)
	acct.Seed(2, 50, "pro", 2000, false)

	decision, err := service.CanPerform(context.Background(), 1, ActionAccessAnalytics, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, decision.RequiresUpgrade)

	decision, err = service.CanPerform(context.Background(), 2, ActionAccessAnalytics, nil)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestPlanService_CanPerform_TeamLimit(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 50, "starter", 500, false)

	decision, err := service.CanPerform(context.Background(), 1, ActionTeamCollaboration,
		&dto.ActionContext{TeamMembers: 2})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = service.CanPerform(context.Background(), 1, ActionTeamCollaboration,
		&dto.ActionContext{TeamMembers: 3})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestPlanService_CanPerform_UnknownAction(t *testing.T) {
	service, _, acct := setupPlanService(t)
	acct.Seed(1, 50, "free", 100, false)

	decision, err := service.CanPerform(context.Background(), 1, "launch_rocket", nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "unknown action", decision.Reason)
}

func TestPlanService_UpgradePlan(t *testing.T) {
	service, db, acct := setupPlanService(t)
	user := testutil.TestUser(t, db)
	acct.Seed(user.ID, 10, "free", 100, false)

	result, err := service.UpgradePlan(context.Background(), user.ID, config.PlanPro, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, config.PlanPro, result.NewPlan)
	assert.Equal(t, 2000, result.TokensGranted)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, model.SubStatusActive, result.Subscription.Status)

	// Tokens landed on the account.
	assert.Equal(t, 2010, acct.Account(user.ID).Tokens)

	// User row moved to the new tier.
	updated, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, config.PlanPro, updated.Plan)

	// Saga log reached the terminal success state.
	changes, err := repository.NewPlanChangeRepository(db).ListByState(model.ChangeStateAllocated)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, config.PlanFree, changes[0].FromPlan)
	assert.Equal(t, config.PlanPro, changes[0].ToPlan)
}

func TestPlanService_UpgradePlan_SupersedesPriorSubscription(t *testing.T) {
	service, db, acct := setupPlanService(t)
	user := testutil.TestUser(t, db)
	acct.Seed(user.ID, 10, "free", 100, false)

	first, err := service.UpgradePlan(context.Background(), user.ID, config.PlanStarter, "pay_1")
	require.NoError(t, err)
	second, err := service.UpgradePlan(context.Background(), user.ID, config.PlanPro, "pay_2")
	require.NoError(t, err)

	// Exactly one active subscription survives the second upgrade.
	var active []model.Subscription
	require.NoError(t, db.Where("user_id = ? AND status = ?", user.ID, model.SubStatusActive).
		Find(&active).Error)
	require.Len(t, active, 1)
	assert.Equal(t, config.PlanPro, active[0].Plan)
	assert.Equal(t, second.Subscription.ID, active[0].ID)

	// The starter subscription was canceled, not left behind for the daily
	// expiration sweep and the monthly allocation batch.
	stored, err := repository.NewSubscriptionRepository(db).GetByID(first.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusCanceled, stored.Status)
}

func TestPlanService_UpgradePlan_RollbackRestoresPriorSubscription(t *testing.T) {
	service, db, acct := setupPlanService(t)
	user := testutil.TestUser(t, db, testutil.WithPlan(config.PlanStarter))
	prior := testutil.TestSubscription(t, db, user.ID, config.PlanStarter)
	acct.Seed(user.ID, 10, "starter", 500, false)
	acct.CreditErr = context.DeadlineExceeded

	_, err := service.UpgradePlan(context.Background(), user.ID, config.PlanPro, "pay_123")
	require.Error(t, err)

	// The superseded subscription is active again after the compensation.
	sub, err := repository.NewSubscriptionRepository(db).GetActiveByUser(user.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, prior.ID, sub.ID)
	assert.Equal(t, config.PlanStarter, sub.Plan)
}

func TestPlanService_UpgradePlan_RollbackOnCreditFailure(t *testing.T) {
	service, db, acct := setupPlanService(t)
	user := testutil.TestUser(t, db)
	acct.Seed(user.ID, 10, "free", 100, false)
	acct.CreditErr = context.DeadlineExceeded

	_, err := service.UpgradePlan(context.Background(), user.ID, config.PlanPro, "pay_123")
	require.Error(t, err)

	// Compensating delete removed the subscription.
	sub, err := repository.NewSubscriptionRepository(db).GetActiveByUser(user.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	// User stays on the old tier, saga log records the rollback.
	updated, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, config.PlanFree, updated.Plan)

	changes, err := repository.NewPlanChangeRepository(db).ListByState(model.ChangeStateRolledBack)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestPlanService_UpgradePlan_RejectsDowngradeAndLateral(t *testing.T) {
	service, db, _ := setupPlanService(t)
	user := testutil.TestUser(t, db, testutil.WithPlan(config.PlanPro))

	_, err := service.UpgradePlan(context.Background(), user.ID, config.PlanStarter, "")
	assert.ErrorIs(t, err, ErrNotAnUpgrade)

	_, err = service.UpgradePlan(context.Background(), user.ID, config.PlanPro, "")
	assert.ErrorIs(t, err, ErrNotAnUpgrade)
}

func TestPlanService_UpgradePlan_UnknownPlan(t *testing.T) {
	service, db, _ := setupPlanService(t)
	user := testutil.TestUser(t, db)

	_, err := service.UpgradePlan(context.Background(), user.ID, "platinum", "")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestPlanService_AllocateMonthlyTokens_TopsUpDeficitOnly(t *testing.T) {
	service, db, acct := setupPlanService(t)

	low := testutil.TestUser(t, db, testutil.WithPlan(config.PlanStarter))
	full := testutil.TestUser(t, db, testutil.WithPlan(config.PlanStarter))
	over := testutil.TestUser(t, db, testutil.WithPlan(config.PlanStarter))
	testutil.TestSubscription(t, db, low.ID, config.PlanStarter)
	testutil.TestSubscription(t, db, full.ID, config.PlanStarter)
	testutil.TestSubscription(t, db, over.ID, config.PlanStarter)

	acct.Seed(low.ID, 120, "starter", 500, false)
	acct.Seed(full.ID, 500, "starter", 500, false)
	acct.Seed(over.ID, 750, "starter", 500, false)

	result, err := service.AllocateMonthlyTokens(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Credited)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, result.Errors)

	// Topped up to exactly the included amount; no rollover, no claw-back.
	assert.Equal(t, 500, acct.Account(low.ID).Tokens)
	assert.Equal(t, 500, acct.Account(full.ID).Tokens)
	assert.Equal(t, 750, acct.Account(over.ID).Tokens)
}

func TestPlanService_AllocateMonthlyTokens_SkipsUnlimited(t *testing.T) {
	service, db, acct := setupPlanService(t)

	user := testutil.TestUser(t, db, testutil.WithPlan(config.PlanUnlimited))
	testutil.TestSubscription(t, db, user.ID, config.PlanUnlimited)
	acct.Seed(user.ID, 0, "unlimited", 0, true)

	result, err := service.AllocateMonthlyTokens(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Credited)
}

func TestPlanService_AllocateMonthlyTokens_ContinuesPastFailures(t *testing.T) {
	service, db, acct := setupPlanService(t)

	broken := testutil.TestUser(t, db, testutil.WithPlan(config.PlanStarter))
	healthy := testutil.TestUser(t, db, testutil.WithPlan(config.PlanStarter))
	testutil.TestSubscription(t, db, broken.ID, "legacy_gold") // unknown tier
	testutil.TestSubscription(t, db, healthy.ID, config.PlanStarter)

	acct.Seed(healthy.ID, 100, "starter", 500, false)

	result, err := service.AllocateMonthlyTokens(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Credited)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 500, acct.Account(healthy.ID).Tokens)
}

func TestPlanService_HandleExpiration_DowngradeOnCancel(t *testing.T) {
	service, db, _ := setupPlanService(t)

	user := testutil.TestUser(t, db, testutil.WithPlan(config.PlanPro))
	sub := testutil.TestSubscription(t, db, user.ID, config.PlanPro,
		testutil.WithPeriodEnd(time.Now().Add(-time.Hour)),
		testutil.WithCancelAtPeriodEnd())

	result, err := service.HandleExpiration(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "downgraded", result.Action)
	assert.Equal(t, config.PlanFree, result.Plan)

	updated, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, config.PlanFree, updated.Plan)

	stored, err := repository.NewSubscriptionRepository(db).GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusCanceled, stored.Status)
}

func TestPlanService_HandleExpiration_GracePeriod(t *testing.T) {
	service, db, _ := setupPlanService(t)

	user := testutil.TestUser(t, db, testutil.WithPlan(config.PlanPro))
	sub := testutil.TestSubscription(t, db, user.ID, config.PlanPro,
		testutil.WithPeriodEnd(time.Now().Add(-time.Hour)))

	result, err := service.HandleExpiration(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "grace_period", result.Action)
	assert.Equal(t, config.PlanPro, result.Plan)

	// Still on the paid tier while billing retries.
	updated, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, config.PlanPro, updated.Plan)

	stored, err := repository.NewSubscriptionRepository(db).GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusPastDue, stored.Status)
}

func TestPlanService_HandleExpiration_NotExpired(t *testing.T) {
	service, db, _ := setupPlanService(t)

	user := testutil.TestUser(t, db, testutil.WithPlan(config.PlanPro))
	testutil.TestSubscription(t, db, user.ID, config.PlanPro)

	result, err := service.HandleExpiration(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "none", result.Action)
}

func TestPlanService_GetUserPlan(t *testing.T) {
	service, db, acct := setupPlanService(t)

	user := testutil.TestUser(t, db, testutil.WithPlan(config.PlanStarter))
	testutil.TestSubscription(t, db, user.ID, config.PlanStarter)
	acct.Seed(user.ID, 321, "starter", 500, false)

	plan, err := service.GetUserPlan(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, config.PlanStarter, plan.Type)
	assert.Equal(t, 321, plan.Tokens.Current)
	require.NotNil(t, plan.Subscription)
	assert.Equal(t, config.PlanStarter, plan.Subscription.Plan)
}
