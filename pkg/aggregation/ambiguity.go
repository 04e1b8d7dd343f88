package aggregation

import (
	"sort"

	"mercator-hq/minos/pkg/verdict"
)

// ambiguity measures how contested the weighted scores are, in [0, 1].
//
// The score is the ratio of the second-highest verdict bucket to the highest:
// 0 when a single verdict bucket exists (single contributor or unanimity),
// approaching 1 as the top two buckets converge. The ratio is monotone in the
// closeness of the top two scores, which is the property callers rely on for
// escalation decisions.
func (a *Aggregator) ambiguity(reports []*verdict.EvaluatorReport, scores map[verdict.Verdict]float64) float64 {
	if len(scores) < 2 {
		return 0
	}

	values := make([]float64, 0, len(scores))
	for _, s := range scores {
		values = append(values, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	top, second := values[0], values[1]
	if top <= 0 {
		return 0
	}
	return second / top
}
