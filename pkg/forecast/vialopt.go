package forecast

import (
	"context"
	"sort"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// optimizeVials searches the allowed presentations for the unit combination
// that covers the target dose with minimum waste, tie-broken by fewest
// units. The search is exhaustive over combinations of at most VialUnitCap
// units, which stays small for realistic presentation counts.
func (e *Engine) optimizeVials(
	ctx context.Context,
	idx *entities.PayloadIndex,
	rule *entities.DispenseRule,
	doseMcg float64,
) ([]demandLine, error) {
	if doseMcg <= 0 {
		return nil, nil
	}
	body := rule.Rule

	type option struct {
		id       entities.PresentationID
		strength float64
	}
	var options []option
	for _, presID := range body.AllowedPresentations {
		pres := idx.Presentation(body.ProductID, presID)
		if pres == nil || pres.StrengthMcg <= 0 {
			continue
		}
		options = append(options, option{id: presID, strength: pres.StrengthMcg})
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].strength != options[j].strength {
			return options[i].strength > options[j].strength
		}
		return options[i].id < options[j].id
	})

	unitCap := e.cfg.VialUnitCap
	infeasible := &NoFeasibleCombinationError{
		RuleID:        rule.DispenseRuleID,
		TargetDoseMcg: doseMcg,
		UnitCap:       unitCap,
	}
	if len(options) == 0 {
		return nil, infeasible
	}

	var (
		bestCounts []int
		bestWaste  float64
		bestUnits  int
	)
	counts := make([]int, len(options))

	var walk func(i, units int, sum float64) error
	walk = func(i, units int, sum float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sum >= doseMcg {
			waste := sum - doseMcg
			if bestCounts == nil || waste < bestWaste || (waste == bestWaste && units < bestUnits) {
				bestCounts = append([]int(nil), counts...)
				bestWaste = waste
				bestUnits = units
			}
			return nil
		}
		if i == len(options) || units == unitCap {
			return nil
		}
		for c := 0; units+c <= unitCap; c++ {
			counts[i] = c
			if err := walk(i+1, units+c, sum+float64(c)*options[i].strength); err != nil {
				return err
			}
			// once this count alone covers the target, more only adds waste
			if sum+float64(c)*options[i].strength >= doseMcg {
				break
			}
		}
		counts[i] = 0
		return nil
	}
	if err := walk(0, 0, 0); err != nil {
		return nil, err
	}
	if bestCounts == nil {
		return nil, infeasible
	}

	var lines []demandLine
	for i, c := range bestCounts {
		if c == 0 {
			continue
		}
		lines = append(lines, demandLine{
			sku: entities.MakeSKU(body.ProductID, options[i].id),
			qty: float64(c),
		})
	}
	return lines, nil
}
