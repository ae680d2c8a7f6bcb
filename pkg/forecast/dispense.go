package forecast

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// doseContext is the variable environment dispense conditions and calc
// expressions evaluate against
type doseContext struct {
	DoseMcg  float64
	DoseMg   float64
	WeightKg float64
}

func (d doseContext) env() map[string]any {
	return map[string]any{
		"dose_mcg":  d.DoseMcg,
		"dose_mg":   d.DoseMg,
		"weight_kg": d.WeightKg,
	}
}

func (d doseContext) field(name string) float64 {
	switch name {
	case "dose_mcg":
		return d.DoseMcg
	case "dose_mg":
		return d.DoseMg
	case "weight_kg":
		return d.WeightKg
	}
	return 0
}

// calcCache memoizes compiled calc expressions for the duration of one run.
// The same expression typically recurs across every bucket and occurrence.
type calcCache struct {
	programs map[string]*vm.Program
}

func newCalcCache() *calcCache {
	return &calcCache{programs: make(map[string]*vm.Program)}
}

func (c *calcCache) eval(code string, dctx doseContext) (float64, error) {
	prog, ok := c.programs[code]
	if !ok {
		var err error
		prog, err = expr.Compile(code, expr.Env(dctx.env()))
		if err != nil {
			return 0, fmt.Errorf("compile calc %q: %w", code, err)
		}
		c.programs[code] = prog
	}
	out, err := expr.Run(prog, dctx.env())
	if err != nil {
		return 0, fmt.Errorf("evaluate calc %q: %w", code, err)
	}
	switch n := out.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("calc %q returned %T, expected a number", code, out)
	}
}

// evaluateConditional walks the rule's branches in order and dispenses the
// first block whose conditions all hold, falling back to the default block.
// Each line dispenses at least one unit.
func evaluateConditional(progs *calcCache, rule *entities.DispenseRule, dctx doseContext) ([]demandLine, error) {
	block := rule.Rule.Default
	for i := range rule.Rule.Conditions {
		branch := &rule.Rule.Conditions[i]
		if branchMatches(branch.If, dctx) {
			block = &branch.Then
			break
		}
	}
	if block == nil {
		return nil, nil
	}

	lines := make([]demandLine, 0, len(block.Dispense))
	for _, item := range block.Dispense {
		qty := 1.0
		switch {
		case item.Calc != "":
			v, err := progs.eval(item.Calc, dctx)
			if err != nil {
				return nil, fmt.Errorf("dispense rule %q: %w", rule.DispenseRuleID, err)
			}
			qty = v
		case item.Qty != nil:
			qty = *item.Qty
		}
		if qty < 1 {
			qty = 1
		}
		lines = append(lines, demandLine{
			sku: entities.MakeSKU(item.ProductID, item.PresentationID),
			qty: qty,
		})
	}
	return lines, nil
}

func branchMatches(conds []entities.DispenseCondition, dctx doseContext) bool {
	for _, cond := range conds {
		lhs := dctx.field(cond.Field)
		var ok bool
		switch cond.Op {
		case "<":
			ok = lhs < cond.Value
		case "<=":
			ok = lhs <= cond.Value
		case ">":
			ok = lhs > cond.Value
		case ">=":
			ok = lhs >= cond.Value
		case "==":
			ok = lhs == cond.Value
		case "!=":
			ok = lhs != cond.Value
		}
		if !ok {
			return false
		}
	}
	return true
}
