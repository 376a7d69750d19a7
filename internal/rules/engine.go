package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
)

// Pick returns the first enabled rule, by ascending priority, whose
// conditions all hold for txn. Ties keep their input order.
func Pick(rules []models.Rule, txn models.Transaction) *models.Rule {
	ordered := make([]models.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	for i := range ordered {
		if Matches(ordered[i], txn) {
			return &ordered[i]
		}
	}
	return nil
}

// Matches reports whether every condition holds. A rule without conditions
// matches everything.
func Matches(rule models.Rule, txn models.Transaction) bool {
	for _, cond := range rule.Conditions {
		if !conditionHolds(cond, txn) {
			return false
		}
	}
	return true
}

func conditionHolds(cond models.RuleCondition, txn models.Transaction) bool {
	value := fieldValue(txn, cond.Field)
	switch cond.Op {
	case enums.RuleOpRegex:
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	case enums.RuleOpContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(cond.Value))
	case enums.RuleOpGTE, enums.RuleOpLTE:
		got, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return false
		}
		want, err := decimal.NewFromString(strings.TrimSpace(cond.Value))
		if err != nil {
			return false
		}
		if cond.Op == enums.RuleOpGTE {
			return got.GreaterThanOrEqual(want)
		}
		return got.LessThanOrEqual(want)
	default:
		return false
	}
}

// fieldValue renders a transaction field for comparison. Unknown fields and
// nil values compare as the empty string.
func fieldValue(txn models.Transaction, field string) string {
	switch normalizeField(field) {
	case "merchant":
		return deref(txn.Merchant)
	case "descriptionraw", "description":
		return deref(txn.DescriptionRaw)
	case "amount":
		return txn.Amount.String()
	case "categoryid", "category":
		return deref(txn.CategoryID)
	case "accountid":
		return txn.AccountID
	case "currency":
		return txn.Currency
	default:
		return ""
	}
}

func normalizeField(field string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(field), "_", ""))
}

// Apply returns a copy of txn with the rule's actions applied in order.
func Apply(rule models.Rule, txn models.Transaction) models.Transaction {
	out := txn
	out.Tags = append([]string(nil), txn.Tags...)
	for _, act := range rule.Actions {
		switch act.Type {
		case enums.RuleActionSetCategory:
			category := act.CategoryID
			out.CategoryID = &category
			out.CategoryConfidence = 1
		case enums.RuleActionRenameMerchant:
			merchant := act.To
			out.Merchant = &merchant
		case enums.RuleActionAddTag:
			if act.Tag != "" && !containsTag(out.Tags, act.Tag) {
				out.Tags = append(out.Tags, act.Tag)
			}
		}
	}
	return out
}

// Evaluate picks and applies in one step. The returned rule is nil when
// nothing matched, in which case txn is returned unchanged.
func Evaluate(rules []models.Rule, txn models.Transaction) (models.Transaction, *models.Rule) {
	rule := Pick(rules, txn)
	if rule == nil {
		return txn, nil
	}
	return Apply(*rule, txn), rule
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
