package scoring

import (
	"github.com/lexeval/lexeval/internal/pkg/errors"
	"github.com/lexeval/lexeval/internal/schema"
)

// Result collects the records and soft exclusions produced for one scenario.
type Result struct {
	Records    []schema.ScoreRecord
	Exclusions []schema.Exclusion
}

// Merge appends another result.
func (r *Result) Merge(other Result) {
	r.Records = append(r.Records, other.Records...)
	r.Exclusions = append(r.Exclusions, other.Exclusions...)
}

// emitter tags emitted records with the scenario's jurisdictions. A scenario
// spanning several jurisdictions contributes its score to each of them; the
// aggregator then macro-averages over jurisdiction groups.
type emitter struct {
	scenario schema.Scenario
	res      *Result
}

func newEmitter(scenario schema.Scenario, res *Result) emitter {
	return emitter{scenario: scenario, res: res}
}

func (e emitter) value(metric string, v float64) {
	jurisdictions := e.scenario.Jurisdictions
	if len(jurisdictions) == 0 {
		jurisdictions = []string{""}
	}
	for _, j := range jurisdictions {
		e.res.Records = append(e.res.Records, schema.ScoreRecord{
			ScenarioID:   e.scenario.ID,
			Metric:       metric,
			Value:        v,
			Jurisdiction: j,
		})
	}
}

// exclude marks a metric as undefined for this scenario. Excluded metrics
// are surfaced in the report, never averaged as zero.
func (e emitter) exclude(metric, reason string) {
	e.res.Exclusions = append(e.res.Exclusions, schema.Exclusion{
		ScenarioID: e.scenario.ID,
		Metric:     metric,
		Code:       errors.CodeUndefinedMetric,
		Reason:     reason,
	})
}

// f1 computes the harmonic mean of precision and recall.
func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
