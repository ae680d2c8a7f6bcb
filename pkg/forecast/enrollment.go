package forecast

import (
	"time"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

const curvePeriodDays = 30

// enrollmentSeries produces net new subjects per bucket from whichever
// enrollment shape the payload carries: explicit curve, site waves, or a flat
// global rate. Screen failures are netted out before subjects enter the
// series.
func enrollmentSeries(p *entities.CanonicalPayload, g grid) []float64 {
	series := make([]float64, g.horizon)
	a := p.Assumptions

	if a.EnrollmentCurve != nil && len(a.EnrollmentCurve.Points) > 0 {
		applyCurve(series, g, a.EnrollmentCurve)
		return series
	}
	if len(a.EnrollmentWaves) > 0 {
		for _, w := range a.EnrollmentWaves {
			applyWave(series, g, w)
		}
		return series
	}
	if a.EnrollmentRatePerBucket > 0 {
		for t := range series {
			series[t] = a.EnrollmentRatePerBucket
		}
	}
	return series
}

// applyCurve spreads each monthly curve period evenly across the buckets it
// covers. Inside the horizon the period's last bucket absorbs rounding so
// the period total is preserved exactly; when a period straddles the
// horizon end, the in-horizon buckets keep their even share and the
// remainder falls outside the window rather than inflating the last
// visible bucket.
func applyCurve(series []float64, g grid, c *entities.EnrollmentCurve) {
	for _, pt := range c.Points {
		if pt.Period < 1 || pt.NewSubjects <= 0 {
			continue
		}
		effective := pt.NewSubjects * (1 - c.ScreenFailRate)

		startDay := (pt.Period - 1) * curvePeriodDays
		endDay := pt.Period * curvePeriodDays
		startB := startDay / g.stepDays
		endB := (endDay + g.stepDays - 1) / g.stepDays
		if startB >= g.horizon {
			continue
		}
		n := endB - startB
		if n <= 0 {
			continue
		}
		per := effective / float64(n)
		if endB > g.horizon {
			for b := startB; b < g.horizon; b++ {
				series[b] += per
			}
			continue
		}
		for b := startB; b < endB-1; b++ {
			series[b] += per
		}
		series[endB-1] += effective - per*float64(n-1)
	}
}

// applyWave adds a wave's net rate over its active bucket range. Explicit
// bucket indices win over dates; an open end runs to the horizon.
func applyWave(series []float64, g grid, w entities.EnrollmentWave) {
	rate := w.EnrollmentRatePerBucket * (1 - w.ScreenFailRate)
	if rate <= 0 {
		return
	}

	start := 0
	if w.StartBucketIndex != nil {
		start = *w.StartBucketIndex
	} else if w.StartDate != "" {
		start = dateToBucket(g, w.StartDate)
	}
	end := g.horizon - 1
	if w.EndBucketIndex != nil {
		end = *w.EndBucketIndex
	} else if w.EndDate != "" {
		end = dateToBucket(g, w.EndDate)
	}

	if start < 0 {
		start = 0
	}
	if end >= g.horizon {
		end = g.horizon - 1
	}
	for t := start; t <= end; t++ {
		series[t] += rate
	}
}

func dateToBucket(g grid, date string) int {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	days := int(d.Sub(g.start).Hours() / 24)
	if days < 0 {
		return -1
	}
	return days / g.stepDays
}

type groupKind int

const (
	groupAll groupKind = iota
	groupCohort
	groupArm
)

// enrollmentGroup is one regimen-resolving slice of the enrollment series
type enrollmentGroup struct {
	id     string
	kind   groupKind
	series []float64
}

type groupSplit struct {
	groups   []enrollmentGroup
	byCohort map[entities.CohortID][]float64
}

// splitGroups attributes enrolled subjects to cohorts or arms. Cohorts fill
// sequentially up to max_participants with an optional stagger gap before
// the next cohort opens; arms split every bucket by randomization weight.
// Attribution never drops subjects: overflow past the last cohort's capacity
// and subjects arriving inside a stagger gap stay with the nearest cohort,
// so cohort series always sum back to the enrollment series.
func splitGroups(p *entities.CanonicalPayload, g grid, enrolled []float64) groupSplit {
	sd := p.StudyDesign
	if sd != nil && len(sd.Cohorts) > 0 {
		return splitByCohort(sd.Cohorts, g, enrolled, p.Assumptions.CohortStaggerDays)
	}
	if sd != nil && len(sd.Arms) > 0 {
		return splitByArm(sd.Arms, g, enrolled)
	}

	series := make([]float64, g.horizon)
	copy(series, enrolled)
	return groupSplit{groups: []enrollmentGroup{{id: "", kind: groupAll, series: series}}}
}

func splitByCohort(cohorts []entities.Cohort, g grid, enrolled []float64, staggerDays int) groupSplit {
	split := groupSplit{byCohort: make(map[entities.CohortID][]float64, len(cohorts))}
	filled := make([]float64, len(cohorts))
	openAt := make([]int, len(cohorts))
	for i := range cohorts {
		split.groups = append(split.groups, enrollmentGroup{
			id:     string(cohorts[i].CohortID),
			kind:   groupCohort,
			series: make([]float64, g.horizon),
		})
	}
	staggerBuckets := g.bucketOf(staggerDays)

	cur := 0
	for t := 0; t < g.horizon; t++ {
		remaining := enrolled[t]
		for remaining > 0 {
			if cur >= len(cohorts) {
				// capacity exhausted: the last cohort absorbs the rest
				split.groups[len(cohorts)-1].series[t] += remaining
				break
			}
			if t < openAt[cur] {
				// stagger gap: subjects stay with the previous cohort
				prev := cur - 1
				if prev < 0 {
					prev = 0
				}
				split.groups[prev].series[t] += remaining
				break
			}
			limit := cohorts[cur].MaxParticipants
			take := remaining
			if limit != nil {
				if avail := *limit - filled[cur]; avail < take {
					take = avail
				}
			}
			if take > 0 {
				split.groups[cur].series[t] += take
				filled[cur] += take
				remaining -= take
			}
			if limit != nil && filled[cur] >= *limit {
				cur++
				if cur < len(cohorts) {
					openAt[cur] = t + staggerBuckets
				}
			} else {
				break
			}
		}
	}

	for _, grp := range split.groups {
		split.byCohort[entities.CohortID(grp.id)] = grp.series
	}
	return split
}

func splitByArm(arms []entities.Arm, g grid, enrolled []float64) groupSplit {
	var total float64
	for _, arm := range arms {
		if arm.RandomizationWeight > 0 {
			total += arm.RandomizationWeight
		}
	}

	var split groupSplit
	for _, arm := range arms {
		share := 1.0 / float64(len(arms))
		if total > 0 {
			share = 0
			if arm.RandomizationWeight > 0 {
				share = arm.RandomizationWeight / total
			}
		}
		series := make([]float64, g.horizon)
		for t, n := range enrolled {
			series[t] = n * share
		}
		split.groups = append(split.groups, enrollmentGroup{
			id:     string(arm.ArmID),
			kind:   groupArm,
			series: series,
		})
	}
	return split
}

// resolveRegimen maps a group to its dosing regimen. Cohort groups consult
// cohort_to_regimen first, then arm_to_regimen keyed by the cohort id, which
// legacy payloads used for single-arm cohorts. A payload with exactly one
// regimen and no grouping uses that regimen for everyone.
func resolveRegimen(p *entities.CanonicalPayload, idx *entities.PayloadIndex, grp enrollmentGroup) *entities.Regimen {
	sd := p.StudyDesign

	switch grp.kind {
	case groupCohort:
		if sd != nil {
			if rid, ok := sd.CohortToRegimen[entities.CohortID(grp.id)]; ok {
				return idx.Regimens[rid]
			}
			if rid, ok := sd.ArmToRegimen[entities.ArmID(grp.id)]; ok {
				return idx.Regimens[rid]
			}
		}
	case groupArm:
		if sd != nil {
			if rid, ok := sd.ArmToRegimen[entities.ArmID(grp.id)]; ok {
				return idx.Regimens[rid]
			}
		}
	case groupAll:
		if len(p.Regimens) == 1 {
			return &p.Regimens[0]
		}
	}
	return nil
}
