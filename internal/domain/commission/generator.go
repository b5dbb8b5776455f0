package commission

import (
	"context"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/sale"
	"farmapos/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Generator matches sold lines against active rules and writes commission
// records. It runs after the sale has committed and never fails the sale:
// the caller logs and swallows any error it returns.
type Generator struct {
	repo Repository

	env      *cel.Env
	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewGenerator creates a commission generator. The CEL environment exposes
// the sold line to rule conditions.
func NewGenerator(repo Repository) (*Generator, error) {
	env, err := cel.NewEnv(
		cel.Variable("units", cel.IntType),
		cel.Variable("quantity", cel.IntType),
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("unit", cel.StringType),
		cel.Variable("payment_method", cel.StringType),
	)
	if err != nil {
		return nil, err
	}
	return &Generator{
		repo:     repo,
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// GenerateForSale implements sale.CommissionGenerator.
func (g *Generator) GenerateForSale(ctx context.Context, s *sale.Sale) error {
	now := time.Now().UTC()
	var records []Record

	for i := range s.Lines {
		l := &s.Lines[i]
		if l.Kind != sale.KindNormal {
			continue
		}

		rule, err := g.repo.FindRuleForProduct(ctx, l.ProductID, now)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return err
		}
		if !rule.AppliesOn(now) {
			continue
		}
		if !g.conditionHolds(ctx, rule, s, l) {
			continue
		}

		amount := g.amountFor(rule, l)
		if !amount.IsPositive() {
			continue
		}

		records = append(records, Record{
			ID:        id.New(),
			SiteID:    s.SiteID,
			CompanyID: s.CompanyID,
			SaleID:    s.ID,
			LineID:    l.ID,
			RuleID:    rule.ID,
			UserID:    s.UserID,
			Amount:    amount,
			CreatedAt: now,
		})
	}

	if len(records) == 0 {
		return nil
	}
	if err := g.repo.CreateRecords(ctx, records); err != nil {
		return err
	}
	logger.Info(ctx, "commissions generated", "sale_id", s.ID, "count", len(records))
	return nil
}

// amountFor computes the commission for one line under one rule.
func (g *Generator) amountFor(rule *Rule, l *sale.Line) types.Money {
	switch rule.Type {
	case TypePercentage:
		return l.Subtotal.Mul(rule.Value).Div(hundred).Round(2)
	case TypeFixedAmount:
		baseUnits := types.Quantity(l.Quantity) * l.Factor
		return rule.Value.Mul(baseUnits.Money()).Round(2)
	}
	return types.Zero()
}

// conditionHolds evaluates the rule's CEL condition against the line.
// Compile or eval errors disable the rule for this line (logged, not fatal).
func (g *Generator) conditionHolds(ctx context.Context, rule *Rule, s *sale.Sale, l *sale.Line) bool {
	if rule.Condition == "" {
		return true
	}

	prg, err := g.program(rule.Condition)
	if err != nil {
		logger.Warn(ctx, "commission condition does not compile",
			"rule_id", rule.ID, "error", err)
		return false
	}

	out, _, err := prg.Eval(map[string]any{
		"units":          int64(types.Quantity(l.Quantity) * l.Factor),
		"quantity":       l.Quantity,
		"subtotal":       l.Subtotal.InexactFloat64(),
		"unit":           string(l.Unit),
		"payment_method": string(s.PaymentMethod),
	})
	if err != nil {
		logger.Warn(ctx, "commission condition eval failed",
			"rule_id", rule.ID, "error", err)
		return false
	}
	hold, ok := out.Value().(bool)
	return ok && hold
}

// program returns a cached compiled program for the expression.
func (g *Generator) program(expr string) (cel.Program, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prg, ok := g.programs[expr]; ok {
		return prg, nil
	}
	ast, iss := g.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	prg, err := g.env.Program(ast)
	if err != nil {
		return nil, err
	}
	g.programs[expr] = prg
	return prg, nil
}

var _ sale.CommissionGenerator = (*Generator)(nil)
