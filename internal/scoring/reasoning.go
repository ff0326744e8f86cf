package scoring

import (
	"math"

	"github.com/lexeval/lexeval/internal/schema"
)

// ScoreReasoning scores a predicted structured outcome against the gold
// outcome. A nil predicted outcome is a full miss: accuracy metrics score
// zero, the Brier score takes its worst value, and no calibration point is
// emitted. The returned point, when non-nil, feeds population-level ECE.
func ScoreReasoning(gold schema.GoldScenario, pred *schema.PredictedOutcome, cfg Config) (Result, *schema.CalibrationPoint) {
	var res Result
	em := newEmitter(gold.Scenario, &res)

	if gold.Outcome == nil {
		em.exclude(MetricApplicability, "no gold reasoning outcome")
		return res, nil
	}
	g := *gold.Outcome

	if pred == nil {
		em.value(MetricApplicability, 0)
		em.value(MetricFormPrecision, 0)
		em.value(MetricFormRecall, 0)
		em.value(MetricFormF1, 0)
		if g.Deadline != "" {
			em.value(MetricDeadline, 0)
		} else {
			em.exclude(MetricDeadline, "no gold filing deadline")
		}
		em.value(MetricBrier, 1)
		em.exclude(MetricECE, "no predicted outcome")
		return res, nil
	}

	// Applicability: both scope sets must match exactly. Partial credit is
	// not given; a wrong jurisdiction scope changes which laws apply.
	applicable := setsEqual(g.Jurisdictions, pred.Jurisdictions) &&
		setsEqual(g.TaxTypes, pred.TaxTypes)
	em.value(MetricApplicability, boolScore(applicable))

	scoreForms(em, g.Forms, pred.Forms)

	if g.Deadline != "" {
		em.value(MetricDeadline, boolScore(g.Deadline == pred.Deadline))
	} else {
		em.exclude(MetricDeadline, "no gold filing deadline")
	}

	// Correctness for calibration is the full outcome tuple.
	correct := setsEqual(g.Jurisdictions, pred.Jurisdictions) &&
		setsEqual(g.Forms, pred.Forms) &&
		g.Deadline == pred.Deadline &&
		g.FilingRequired == pred.FilingRequired

	em.value(MetricBrier, math.Pow(pred.Confidence-boolScore(correct), 2))

	point := &schema.CalibrationPoint{
		ScenarioID:    gold.Scenario.ID,
		Jurisdictions: gold.Scenario.Jurisdictions,
		Confidence:    pred.Confidence,
		Correct:       correct,
	}
	return res, point
}

// scoreForms emits set-based precision/recall/F1 over required forms.
// Predicting no forms when none are required is a correct answer.
func scoreForms(em emitter, gold, pred []string) {
	goldSet := toSet(gold)
	predSet := toSet(pred)

	if len(goldSet) == 0 && len(predSet) == 0 {
		em.value(MetricFormPrecision, 1)
		em.value(MetricFormRecall, 1)
		em.value(MetricFormF1, 1)
		return
	}

	tp := 0
	for form := range predSet {
		if goldSet[form] {
			tp++
		}
	}

	precision := 0.0
	if len(predSet) > 0 {
		precision = float64(tp) / float64(len(predSet))
	}
	recall := 0.0
	if len(goldSet) > 0 {
		recall = float64(tp) / float64(len(goldSet))
	}

	em.value(MetricFormPrecision, precision)
	em.value(MetricFormRecall, recall)
	em.value(MetricFormF1, f1(precision, recall))
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func setsEqual(a, b []string) bool {
	as, bs := toSet(a), toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for item := range as {
		if !bs[item] {
			return false
		}
	}
	return true
}
