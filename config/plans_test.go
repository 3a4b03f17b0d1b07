package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCatalog() map[string]PlanConfig {
	return map[string]PlanConfig{
		PlanFree: {
			DisplayName:    "Free",
			TokensPerMonth: 100,
			Limits:         PlanLimits{ExtensionsPerMonth: 3, RevisionsPerExtension: 3, StorageMB: 100, TeamMembers: 1},
		},
		PlanStarter: {
			DisplayName:       "Starter",
			PriceMonthlyCents: 900,
			TokensPerMonth:    500,
			Limits:            PlanLimits{ExtensionsPerMonth: 10, RevisionsPerExtension: 10, StorageMB: 1024, TeamMembers: 3},
		},
		PlanPro: {
			DisplayName:       "Pro",
			PriceMonthlyCents: 2900,
			TokensPerMonth:    2000,
			Limits:            PlanLimits{ExtensionsPerMonth: 50, RevisionsPerExtension: 25, StorageMB: 10240, TeamMembers: 10},
		},
		PlanUnlimited: {
			DisplayName:       "Unlimited",
			PriceMonthlyCents: 9900,
			IsUnlimited:       true,
			Limits:            PlanLimits{ExtensionsPerMonth: -1, RevisionsPerExtension: -1, StorageMB: -1, TeamMembers: -1},
		},
	}
}

func TestValidatePlans_Valid(t *testing.T) {
	assert.NoError(t, ValidatePlans(validCatalog()))
}

func TestValidatePlans_MissingTier(t *testing.T) {
	plans := validCatalog()
	delete(plans, PlanStarter)

	err := ValidatePlans(plans)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starter")
}

func TestValidatePlans_UnknownTier(t *testing.T) {
	plans := validCatalog()
	plans["platinum"] = plans[PlanPro]

	assert.Error(t, ValidatePlans(plans))
}

func TestValidatePlans_MissingDisplayName(t *testing.T) {
	plans := validCatalog()
	p := plans[PlanPro]
	p.DisplayName = ""
	plans[PlanPro] = p

	assert.Error(t, ValidatePlans(plans))
}

func TestValidatePlans_ZeroTokensOnMeteredTier(t *testing.T) {
	plans := validCatalog()
	p := plans[PlanStarter]
	p.TokensPerMonth = 0
	plans[PlanStarter] = p

	assert.Error(t, ValidatePlans(plans))
}

func TestValidatePlans_InvalidLimitSentinel(t *testing.T) {
	plans := validCatalog()
	p := plans[PlanFree]
	p.Limits.TeamMembers = 0
	plans[PlanFree] = p

	assert.Error(t, ValidatePlans(plans))

	p.Limits.TeamMembers = -2
	plans[PlanFree] = p
	assert.Error(t, ValidatePlans(plans))
}

func TestValidatePlans_PricesMustIncrease(t *testing.T) {
	plans := validCatalog()
	p := plans[PlanPro]
	p.PriceMonthlyCents = 900 // same as starter
	plans[PlanPro] = p

	err := ValidatePlans(plans)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must cost more")
}

func TestValidatePlans_FreeTierMustBeFree(t *testing.T) {
	plans := validCatalog()
	p := plans[PlanFree]
	p.PriceMonthlyCents = 100
	plans[PlanFree] = p

	assert.Error(t, ValidatePlans(plans))
}

func TestPlanRank(t *testing.T) {
	assert.Equal(t, 0, PlanRank(PlanFree))
	assert.Equal(t, 1, PlanRank(PlanStarter))
	assert.Equal(t, 2, PlanRank(PlanPro))
	assert.Equal(t, 3, PlanRank(PlanUnlimited))
	assert.Equal(t, -1, PlanRank("platinum"))
}

func TestHasFeature(t *testing.T) {
	p := PlanConfig{Features: []string{FeatureAnalytics, FeatureAPIAccess}}
	assert.True(t, p.HasFeature(FeatureAnalytics))
	assert.False(t, p.HasFeature(FeatureRemoveBranding))
}
