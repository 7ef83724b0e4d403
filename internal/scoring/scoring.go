// Package scoring flags narrow/quality street segments with a rule-based
// heuristic over canonical edges.
package scoring

import (
	"github.com/gridwise/streetquality/internal/model"
)

// The criteria are: width < 6, lanes == 1, highway in narrowHighways,
// service == "alley", maxspeed < 30. The service criterion joins the list
// only when the source carries a service column, so the denominator is 5
// with it and 4 without. Every other criterion stays in the list even when
// its column is absent; it then evaluates false and drags the score down.
const (
	CriteriaCount            = 5
	criteriaCountSansService = CriteriaCount - 1
)

var narrowHighways = map[string]bool{
	"residential":   true,
	"living_street": true,
	"service":       true,
	"track":         true,
	"path":          true,
	"footway":       true,
}

// Label is the derived quality flag and agreement ratio for one edge.
// Score is satisfied-criteria / total-criteria, in [0,1], and only
// meaningful when IsQuality is true; it is an agreement ratio, not a
// calibrated probability.
type Label struct {
	IsQuality bool
	Score     float64
}

// Score evaluates every criterion against every edge. Except for service,
// a criterion whose backing column is absent evaluates to false for all
// rows. Deterministic and idempotent.
func Score(t *model.EdgeTable) []Label {
	hasWidth := t.Has(model.ColWidth)
	hasLanes := t.Has(model.ColLanes)
	hasHighway := t.Has(model.ColHighway)
	hasService := t.Has(model.ColService)
	hasMaxspeed := t.Has(model.ColMaxspeed)

	total := criteriaCountSansService
	if hasService {
		total = CriteriaCount
	}

	labels := make([]Label, len(t.Edges))
	for i := range t.Edges {
		e := &t.Edges[i]
		var satisfied int

		if hasWidth && e.Width != nil && *e.Width < 6 {
			satisfied++
		}
		if hasLanes && e.Lanes != nil && *e.Lanes == 1 {
			satisfied++
		}
		if hasHighway && e.Highway != nil && narrowHighways[*e.Highway] {
			satisfied++
		}
		if hasService && e.Service != nil && *e.Service == "alley" {
			satisfied++
		}
		if hasMaxspeed && e.Maxspeed != nil && *e.Maxspeed < 30 {
			satisfied++
		}

		if satisfied > 0 {
			labels[i] = Label{
				IsQuality: true,
				Score:     float64(satisfied) / float64(total),
			}
		}
	}
	return labels
}

// QualityIndices returns the row indices flagged as quality streets.
func QualityIndices(labels []Label) []int {
	var idx []int
	for i, l := range labels {
		if l.IsQuality {
			idx = append(idx, i)
		}
	}
	return idx
}
