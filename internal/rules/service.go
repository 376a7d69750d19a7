package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

// DefaultPriority applies when a rule is created without one.
const DefaultPriority = 1000

// CreateInput describes a new rule. Nil Priority and Enabled take defaults.
type CreateInput struct {
	Name       string
	Priority   *int
	Enabled    *bool
	Conditions []models.RuleCondition
	Actions    []models.RuleAction
}

// TestResult reports how the tenant's rules treat a sample transaction.
type TestResult struct {
	Matched     bool
	Rule        *models.Rule
	Transaction models.Transaction
}

// Service manages tenant rules.
type Service interface {
	List(ctx context.Context, tenantID string) ([]models.Rule, error)
	Create(ctx context.Context, tenantID string, input CreateInput) (*models.Rule, error)
	Test(ctx context.Context, tenantID string, sample models.Transaction) (*TestResult, error)
}

type service struct {
	repo Repository
}

// NewService builds the rule service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rule repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, tenantID string) ([]models.Rule, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	rows, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}
	if rows == nil {
		rows = []models.Rule{}
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, tenantID string, input CreateInput) (*models.Rule, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	rule := &models.Rule{
		TenantID:   tenantID,
		Name:       strings.TrimSpace(input.Name),
		Priority:   DefaultPriority,
		Enabled:    true,
		Conditions: input.Conditions,
		Actions:    input.Actions,
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rule")
	}
	return rule, nil
}

func (s *service) Test(ctx context.Context, tenantID string, sample models.Transaction) (*TestResult, error) {
	rows, err := s.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sample.TenantID = strings.TrimSpace(tenantID)
	out, rule := Evaluate(rows, sample)
	return &TestResult{Matched: rule != nil, Rule: rule, Transaction: out}, nil
}

func validateInput(input CreateInput) error {
	problems := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		problems["name"] = "required"
	}
	if len(input.Actions) == 0 {
		problems["actions"] = "at least one action required"
	}
	for i, cond := range input.Conditions {
		key := fmt.Sprintf("conditions[%d]", i)
		switch {
		case strings.TrimSpace(cond.Field) == "":
			problems[key] = "field required"
		case !cond.Op.IsValid():
			problems[key] = fmt.Sprintf("unknown op %q", cond.Op)
		case cond.Op == enums.RuleOpRegex:
			if _, err := regexp.Compile(cond.Value); err != nil {
				problems[key] = "invalid regex"
			}
		case cond.Op == enums.RuleOpGTE || cond.Op == enums.RuleOpLTE:
			if _, err := decimal.NewFromString(strings.TrimSpace(cond.Value)); err != nil {
				problems[key] = "value must be numeric"
			}
		}
	}
	for i, act := range input.Actions {
		key := fmt.Sprintf("actions[%d]", i)
		switch act.Type {
		case enums.RuleActionSetCategory:
			if strings.TrimSpace(act.CategoryID) == "" {
				problems[key] = "category_id required"
			}
		case enums.RuleActionRenameMerchant:
			if strings.TrimSpace(act.To) == "" {
				problems[key] = "to required"
			}
		case enums.RuleActionAddTag:
			if strings.TrimSpace(act.Tag) == "" {
				problems[key] = "tag required"
			}
		default:
			problems[key] = fmt.Sprintf("unknown action %q", act.Type)
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid rule").WithDetails(problems)
	}
	return nil
}
