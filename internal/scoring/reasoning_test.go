package scoring

import (
	"math"
	"testing"

	"github.com/lexeval/lexeval/internal/schema"
)

func reasoningGold() schema.GoldScenario {
	return schema.GoldScenario{
		Scenario: schema.Scenario{
			ID:            "scn_001",
			Jurisdictions: []string{"US-FED"},
			TaxTypes:      []string{"income"},
		},
		Outcome: &schema.Outcome{
			Jurisdictions:  []string{"US-FED"},
			TaxTypes:       []string{"income"},
			Forms:          []string{"1040", "1040-SE"},
			Deadline:       "2026-04-15",
			FilingRequired: true,
		},
	}
}

func correctPrediction(confidence float64) *schema.PredictedOutcome {
	return &schema.PredictedOutcome{
		Outcome: schema.Outcome{
			Jurisdictions:  []string{"US-FED"},
			TaxTypes:       []string{"income"},
			Forms:          []string{"1040-SE", "1040"},
			Deadline:       "2026-04-15",
			FilingRequired: true,
		},
		Confidence: confidence,
	}
}

func TestScoreReasoning_CorrectOutcome(t *testing.T) {
	res, point := ScoreReasoning(reasoningGold(), correctPrediction(1.0), DefaultConfig())

	if got := findValue(t, res, MetricApplicability); got != 1.0 {
		t.Errorf("applicability_accuracy = %f, want 1.0", got)
	}
	if got := findValue(t, res, MetricFormF1); got != 1.0 {
		t.Errorf("form_f1 = %f, want 1.0 (form order must not matter)", got)
	}
	if got := findValue(t, res, MetricDeadline); got != 1.0 {
		t.Errorf("deadline_accuracy = %f, want 1.0", got)
	}
	if got := findValue(t, res, MetricBrier); got != 0 {
		t.Errorf("brier_score = %f, want 0 for confidence 1.0 on a correct outcome", got)
	}
	if point == nil {
		t.Fatal("calibration point missing")
	}
	if !point.Correct || point.Confidence != 1.0 {
		t.Errorf("calibration point = %+v, want correct with confidence 1.0", point)
	}
}

func TestScoreReasoning_Brier(t *testing.T) {
	tests := []struct {
		name string
		pred *schema.PredictedOutcome
		want float64
	}{
		{
			name: "zero confidence on correct outcome is worst case",
			pred: correctPrediction(0.0),
			want: 1.0,
		},
		{
			name: "mid confidence on correct outcome",
			pred: correctPrediction(0.7),
			want: 0.09,
		},
		{
			name: "high confidence on wrong deadline",
			pred: func() *schema.PredictedOutcome {
				p := correctPrediction(0.9)
				p.Deadline = "2026-06-15"
				return p
			}(),
			want: 0.81,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := ScoreReasoning(reasoningGold(), tt.pred, DefaultConfig())
			if got := findValue(t, res, MetricBrier); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("brier_score = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestScoreReasoning_ApplicabilityExactSets(t *testing.T) {
	tests := []struct {
		name string
		pred *schema.PredictedOutcome
		want float64
	}{
		{
			name: "exact sets match",
			pred: correctPrediction(0.9),
			want: 1.0,
		},
		{
			name: "missing jurisdiction scores zero",
			pred: &schema.PredictedOutcome{
				Outcome: schema.Outcome{
					Jurisdictions: []string{},
					TaxTypes:      []string{"income"},
				},
			},
			want: 0,
		},
		{
			name: "extra jurisdiction scores zero",
			pred: &schema.PredictedOutcome{
				Outcome: schema.Outcome{
					Jurisdictions: []string{"US-FED", "US-CA"},
					TaxTypes:      []string{"income"},
				},
			},
			want: 0,
		},
		{
			name: "wrong tax type scores zero",
			pred: &schema.PredictedOutcome{
				Outcome: schema.Outcome{
					Jurisdictions: []string{"US-FED"},
					TaxTypes:      []string{"payroll"},
				},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := ScoreReasoning(reasoningGold(), tt.pred, DefaultConfig())
			if got := findValue(t, res, MetricApplicability); got != tt.want {
				t.Errorf("applicability_accuracy = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestScoreReasoning_Forms(t *testing.T) {
	tests := []struct {
		name          string
		goldForms     []string
		predForms     []string
		wantPrecision float64
		wantRecall    float64
	}{
		{
			name:          "partial overlap",
			goldForms:     []string{"1040", "1040-SE"},
			predForms:     []string{"1040", "941"},
			wantPrecision: 0.5,
			wantRecall:    0.5,
		},
		{
			name:          "both empty is a correct answer",
			goldForms:     nil,
			predForms:     nil,
			wantPrecision: 1.0,
			wantRecall:    1.0,
		},
		{
			name:          "spurious forms when none required",
			goldForms:     nil,
			predForms:     []string{"1040"},
			wantPrecision: 0,
			wantRecall:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gold := reasoningGold()
			gold.Outcome.Forms = tt.goldForms
			pred := correctPrediction(0.5)
			pred.Forms = tt.predForms

			res, _ := ScoreReasoning(gold, pred, DefaultConfig())
			if got := findValue(t, res, MetricFormPrecision); got != tt.wantPrecision {
				t.Errorf("form_precision = %f, want %f", got, tt.wantPrecision)
			}
			if got := findValue(t, res, MetricFormRecall); got != tt.wantRecall {
				t.Errorf("form_recall = %f, want %f", got, tt.wantRecall)
			}
		})
	}
}

func TestScoreReasoning_DeadlineExcludedWithoutGold(t *testing.T) {
	gold := reasoningGold()
	gold.Outcome.Deadline = ""
	pred := correctPrediction(0.5)
	pred.Deadline = ""

	res, _ := ScoreReasoning(gold, pred, DefaultConfig())

	if hasRecord(res, MetricDeadline) {
		t.Error("deadline_accuracy emitted for scenario without a gold deadline")
	}
	if !hasExclusion(res, MetricDeadline) {
		t.Error("deadline_accuracy exclusion missing")
	}
}

func TestScoreReasoning_MissingPrediction(t *testing.T) {
	res, point := ScoreReasoning(reasoningGold(), nil, DefaultConfig())

	for _, metric := range []string{MetricApplicability, MetricFormF1, MetricDeadline} {
		if got := findValue(t, res, metric); got != 0 {
			t.Errorf("%s = %f, want 0 for a missing prediction", metric, got)
		}
	}
	if got := findValue(t, res, MetricBrier); got != 1.0 {
		t.Errorf("brier_score = %f, want 1.0 for a missing prediction", got)
	}
	if point != nil {
		t.Error("missing prediction must not contribute a calibration point")
	}
}

func TestScoreReasoning_NoGoldOutcome(t *testing.T) {
	gold := reasoningGold()
	gold.Outcome = nil

	res, point := ScoreReasoning(gold, correctPrediction(0.9), DefaultConfig())

	if len(res.Records) != 0 {
		t.Errorf("got %d records, want none for a scenario without a gold outcome", len(res.Records))
	}
	if !hasExclusion(res, MetricApplicability) {
		t.Error("applicability_accuracy exclusion missing")
	}
	if point != nil {
		t.Error("no calibration point expected without a gold outcome")
	}
}
