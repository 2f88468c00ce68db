package account

import (
	"sort"
	"strings"

	apperrors "innovation-crm/internal/common/errors"
)

// Every account starts on the free plan with a small assistant allowance.
const (
	FreePlanName   = "Padawan"
	FreePlanTokens = 100
)

// Plan is a purchasable tier. Quota caps the startups a user may track and
// Tokens is the assistant allowance granted for one month.
type Plan struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Quota  int    `json:"quota"`
	Tokens int    `json:"tokens"`
}

var catalog = map[string]Plan{
	"jedi":       {ID: "jedi", Name: "Jedi", Quota: 30, Tokens: 1000},
	"mestrejedi": {ID: "mestrejedi", Name: "Mestre Jedi", Quota: 300, Tokens: 3000},
	"mestreyoda": {ID: "mestreyoda", Name: "Mestre Yoda", Quota: 3000, Tokens: 11000},
}

// LookupPlan resolves a purchasable plan. Ids are matched case-insensitively
// with dashes ignored, so "mestre-jedi" and "MestreJedi" are the same plan.
func LookupPlan(id string) (Plan, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
	if key == strings.ToLower(FreePlanName) {
		return Plan{}, apperrors.NewInvalidPlanError(id, "the free plan cannot be purchased")
	}
	p, ok := catalog[key]
	if !ok {
		return Plan{}, apperrors.NewInvalidPlanError(id, "unknown plan")
	}
	return p, nil
}

// Plans lists the purchasable plans from smallest to largest.
func Plans() []Plan {
	out := make([]Plan, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quota < out[j].Quota })
	return out
}
