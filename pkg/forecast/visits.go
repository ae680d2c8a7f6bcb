package forecast

import (
	"fmt"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// visitOccurrence is one concrete visit event at a day offset from
// enrollment. Repeating visits expand into numbered occurrences that keep a
// pointer to their source visit for dispense-rule lookups.
type visitOccurrence struct {
	visitID   entities.VisitID
	sourceID  entities.VisitID
	dayOffset int
	dosing    bool
}

// defaultVisitID is the synthetic day-zero visit used when a payload defines
// no visit schedule, so visit projections are still produced.
const defaultVisitID entities.VisitID = "VISIT_1"

// expandVisits turns the visit schedule into the flat occurrence list the
// demand stage walks. Repeats run until the end of the horizon.
func expandVisits(p *entities.CanonicalPayload, g grid) []visitOccurrence {
	horizonDays := g.horizon * g.stepDays

	var defs []entities.VisitDef
	if p.StudyDesign != nil {
		defs = p.StudyDesign.Visits
	}
	if len(defs) == 0 {
		return []visitOccurrence{{visitID: defaultVisitID, sourceID: defaultVisitID}}
	}

	var occs []visitOccurrence
	for _, def := range defs {
		occs = append(occs, visitOccurrence{
			visitID:   def.VisitID,
			sourceID:  def.VisitID,
			dayOffset: def.DayOffset,
			dosing:    def.IsDosingEvent,
		})
		if def.RepeatEveryDays <= 0 {
			continue
		}
		for n, day := 1, def.DayOffset+def.RepeatEveryDays; day < horizonDays; n, day = n+1, day+def.RepeatEveryDays {
			occs = append(occs, visitOccurrence{
				visitID:   entities.VisitID(fmt.Sprintf("%s_w%d", def.VisitID, n)),
				sourceID:  def.VisitID,
				dayOffset: day,
				dosing:    def.IsDosingEvent,
			})
		}
	}
	return occs
}

// projectVisits fills VisitsPerBucket and the per-visit breakdown: every
// enrollment in bucket t generates each occurrence shifted by its day
// offset, dropped when it lands past the horizon.
func projectVisits(out *entities.ForecastOutputs, g grid, enrolled []float64, occs []visitOccurrence) {
	byVisit := make(map[entities.VisitID][]float64)

	for _, occ := range occs {
		shift := g.bucketOf(occ.dayOffset)
		series := byVisit[occ.visitID]
		for t, n := range enrolled {
			if n == 0 {
				continue
			}
			bucket := t + shift
			if bucket < 0 || bucket >= g.horizon {
				continue
			}
			if series == nil {
				series = make([]float64, g.horizon)
				byVisit[occ.visitID] = series
			}
			series[bucket] += n
			out.VisitsPerBucket[bucket] += n
		}
	}

	if len(byVisit) > 0 {
		out.VisitsByVisit = byVisit
	}
}
