package model

// RuleType separates blocking rules from advisory ones.
type RuleType string

const (
	RuleHard RuleType = "hard"
	RuleSoft RuleType = "soft"
)

// ConstraintRule parameterizes one evaluation rule. Hard rules block
// induction outright; soft rules accumulate a weighted penalty.
type ConstraintRule struct {
	Name     string             `json:"rule_name"`
	Category string             `json:"category"`
	Type     RuleType           `json:"type"`
	Params   map[string]float64 `json:"parameters"`
	Weight   float64            `json:"weight"`
	Penalty  float64            `json:"violation_penalty"`
	Active   bool               `json:"active"`
}

// Param returns the named parameter or the given default when absent.
func (r ConstraintRule) Param(name string, def float64) float64 {
	if v, ok := r.Params[name]; ok {
		return v
	}
	return def
}
