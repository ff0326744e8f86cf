// Package scoring implements the three scorers of the evaluation engine:
// retrieval ranking quality, extraction span/value correctness, and
// reasoning outcome calibration. All scoring functions are pure: they read
// immutable gold and prediction snapshots plus an explicit Config value and
// emit ScoreRecords, so scenarios can be scored in parallel with no shared
// state.
package scoring

import "fmt"

// Config holds the thresholds shared by all scorers for one run.
type Config struct {
	// KValues are the rank cutoffs for Recall@k, nDCG@k and No-Miss-Rate@k.
	KValues []int

	// SpanOverlap is the minimum intersection/union ratio for a predicted
	// span to match a gold span of the same kind.
	SpanOverlap float64

	// NumericTolerance is the maximum relative error for a numeric value
	// match, given equal unit and period.
	NumericTolerance float64

	// CalibrationBins is the number of equal-width confidence buckets for
	// expected calibration error.
	CalibrationBins int
}

// DefaultConfig returns the campaign defaults. Tax figures are typically
// whole-dollar amounts where exact match is expected but rounding differences
// should not fail a correct extraction, hence the 1% tolerance.
func DefaultConfig() Config {
	return Config{
		KValues:          []int{1, 3, 5, 10},
		SpanOverlap:      0.5,
		NumericTolerance: 0.01,
		CalibrationBins:  10,
	}
}

// Metric names. Rank metrics are suffixed with @k via AtK.
const (
	MetricRecall = "recall"
	MetricNDCG   = "ndcg"
	MetricMRR    = "mrr"
	MetricNoMiss = "no_miss_rate"

	MetricSpanPrecision = "span_precision"
	MetricSpanRecall    = "span_recall"
	MetricSpanF1        = "span_f1"

	MetricNumericAccuracy = "numeric_accuracy"
	MetricNumericMAE      = "numeric_mae"
	MetricUnitAccuracy    = "unit_accuracy"

	MetricDateAccuracy = "date_accuracy"
	MetricDateExact    = "date_exact_match"

	MetricAttributionPrecision = "attribution_precision"
	MetricAttributionRecall    = "attribution_recall"
	MetricAttributionF1        = "attribution_f1"

	MetricApplicability = "applicability_accuracy"
	MetricFormPrecision = "form_precision"
	MetricFormRecall    = "form_recall"
	MetricFormF1        = "form_f1"
	MetricDeadline      = "deadline_accuracy"
	MetricBrier         = "brier_score"
	MetricECE           = "ece"
)

// AtK builds a rank-metric name like "recall@5".
func AtK(metric string, k int) string {
	return fmt.Sprintf("%s@%d", metric, k)
}
