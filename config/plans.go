package config

import (
	"fmt"
)

// Plan tier names, ordered free < starter < pro < unlimited.
const (
	PlanFree      = "free"
	PlanStarter   = "starter"
	PlanPro       = "pro"
	PlanUnlimited = "unlimited"
)

// PlanOrder is the linear upgrade hierarchy. Upgrades are only valid to a
// strictly higher tier.
var PlanOrder = []string{PlanFree, PlanStarter, PlanPro, PlanUnlimited}

// Capability tags a plan's feature set may contain.
const (
	FeatureAnalytics          = "analytics"
	FeatureRemoveBranding     = "remove_branding"
	FeatureAPIAccess          = "api_access"
	FeatureTeamCollaboration  = "team_collaboration"
	FeatureUnlimitedRevisions = "unlimited_revisions"
	FeaturePrioritySupport    = "priority_support"
)

// PlanConfig is one entry of the static plan catalog. Loaded once at process
// start and immutable afterwards.
type PlanConfig struct {
	DisplayName       string     `mapstructure:"display_name"`
	PriceMonthlyCents int        `mapstructure:"price_monthly_cents"`
	PriceYearlyCents  int        `mapstructure:"price_yearly_cents"`
	TokensPerMonth    int        `mapstructure:"tokens_per_month"`
	IsUnlimited       bool       `mapstructure:"is_unlimited"`
	Limits            PlanLimits `mapstructure:"limits"`
	Features          []string   `mapstructure:"features"`
	Tagline           string     `mapstructure:"tagline"`
}

// PlanLimits uses -1 as the "unlimited" sentinel throughout.
type PlanLimits struct {
	ExtensionsPerMonth    int `mapstructure:"extensions_per_month"`
	RevisionsPerExtension int `mapstructure:"revisions_per_extension"`
	StorageMB             int `mapstructure:"storage_mb"`
	TeamMembers           int `mapstructure:"team_members"`
}

// HasFeature reports whether the plan carries the given capability tag.
func (p PlanConfig) HasFeature(tag string) bool {
	for _, f := range p.Features {
		if f == tag {
			return true
		}
	}
	return false
}

// PlanRank returns the position of a plan in the upgrade hierarchy, or -1 for
// unknown plans.
func PlanRank(name string) int {
	for i, p := range PlanOrder {
		if p == name {
			return i
		}
	}
	return -1
}

// ValidatePlans checks the catalog at load time so authoring mistakes fail the
// process start instead of surfacing as runtime permission bugs.
func ValidatePlans(plans map[string]PlanConfig) error {
	for _, name := range PlanOrder {
		if _, ok := plans[name]; !ok {
			return fmt.Errorf("plan catalog: missing required tier %q", name)
		}
	}

	for name, p := range plans {
		if PlanRank(name) < 0 {
			return fmt.Errorf("plan catalog: unknown tier %q", name)
		}
		if p.DisplayName == "" {
			return fmt.Errorf("plan catalog: tier %q missing display_name", name)
		}
		if p.TokensPerMonth <= 0 && !p.IsUnlimited {
			return fmt.Errorf("plan catalog: tier %q needs tokens_per_month > 0", name)
		}
		if err := validateLimit(name, "extensions_per_month", p.Limits.ExtensionsPerMonth); err != nil {
			return err
		}
		if err := validateLimit(name, "revisions_per_extension", p.Limits.RevisionsPerExtension); err != nil {
			return err
		}
		if err := validateLimit(name, "team_members", p.Limits.TeamMembers); err != nil {
			return err
		}
	}

	// Prices must be strictly increasing along the hierarchy.
	for i := 1; i < len(PlanOrder); i++ {
		lower := plans[PlanOrder[i-1]]
		higher := plans[PlanOrder[i]]
		if higher.PriceMonthlyCents <= lower.PriceMonthlyCents {
			return fmt.Errorf("plan catalog: tier %q must cost more than %q",
				PlanOrder[i], PlanOrder[i-1])
		}
	}

	if plans[PlanFree].PriceMonthlyCents != 0 {
		return fmt.Errorf("plan catalog: free tier must have zero price")
	}

	return nil
}

func validateLimit(plan, field string, v int) error {
	if v == 0 || v < -1 {
		return fmt.Errorf("plan catalog: tier %q limit %s must be positive or -1", plan, field)
	}
	return nil
}
