package enums

import "fmt"

// RuleOp is the comparison applied by a rule condition.
type RuleOp string

const (
	RuleOpRegex    RuleOp = "regex"
	RuleOpContains RuleOp = "contains"
	RuleOpGTE      RuleOp = "gte"
	RuleOpLTE      RuleOp = "lte"
)

var validRuleOps = []RuleOp{RuleOpRegex, RuleOpContains, RuleOpGTE, RuleOpLTE}

// IsValid reports whether the value is a known RuleOp.
func (o RuleOp) IsValid() bool {
	for _, candidate := range validRuleOps {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseRuleOp converts raw input into a RuleOp.
func ParseRuleOp(value string) (RuleOp, error) {
	for _, candidate := range validRuleOps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule op %q", value)
}

// RuleActionType is the mutation a matched rule applies to a transaction.
type RuleActionType string

const (
	RuleActionSetCategory    RuleActionType = "set_category"
	RuleActionRenameMerchant RuleActionType = "rename_merchant"
	RuleActionAddTag         RuleActionType = "add_tag"
)

var validRuleActions = []RuleActionType{RuleActionSetCategory, RuleActionRenameMerchant, RuleActionAddTag}

// IsValid reports whether the value is a known RuleActionType.
func (a RuleActionType) IsValid() bool {
	for _, candidate := range validRuleActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseRuleActionType converts raw input into a RuleActionType.
func ParseRuleActionType(value string) (RuleActionType, error) {
	for _, candidate := range validRuleActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule action %q", value)
}
