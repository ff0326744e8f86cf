package schema

import (
	"testing"

	"github.com/lexeval/lexeval/internal/pkg/errors"
)

func validGold() GoldScenario {
	return GoldScenario{
		Scenario: Scenario{
			ID:            "scn_001",
			Jurisdictions: []string{"US-FED"},
			TaxTypes:      []string{"income"},
		},
		Retrieval: GoldRetrieval{
			Sections: []GoldSection{
				{SectionID: "sec_61", Grade: 3, Mandatory: true, Controlling: true},
				{SectionID: "sec_62", Grade: 2},
			},
		},
		Extraction: Extraction{
			Sections: map[string]SectionExtraction{
				"sec_61": {
					Spans: []Span{
						{Kind: SpanCondition, Start: 10, End: 42, Text: "gross income means all income"},
					},
					Numerics: []NumericValue{
						{Value: 12000, Unit: "dollar", Period: "annual"},
					},
					Dates: []DateValue{
						{Date: "2026-04-15", Kind: "filing_deadline"},
					},
				},
			},
		},
		Outcome: &Outcome{
			Jurisdictions:  []string{"US-FED"},
			TaxTypes:       []string{"income"},
			Forms:          []string{"1040"},
			Deadline:       "2026-04-15",
			FilingRequired: true,
		},
	}
}

func TestValidateGold_Valid(t *testing.T) {
	if err := ValidateGold("scn_001", validGold()); err != nil {
		t.Fatalf("ValidateGold() error = %v, want nil", err)
	}
}

func TestValidateGold_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*GoldScenario)
		wantCode string
	}{
		{
			name: "grade out of range",
			modify: func(g *GoldScenario) {
				g.Retrieval.Sections[1].Grade = 4
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "grade zero",
			modify: func(g *GoldScenario) {
				g.Retrieval.Sections[1].Grade = 0
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "missing section id",
			modify: func(g *GoldScenario) {
				g.Retrieval.Sections[0].SectionID = ""
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "duplicate gold section",
			modify: func(g *GoldScenario) {
				g.Retrieval.Sections[1].SectionID = "sec_61"
			},
			wantCode: errors.CodeConsistency,
		},
		{
			name: "two controlling sections",
			modify: func(g *GoldScenario) {
				g.Retrieval.Sections[1].Controlling = true
			},
			wantCode: errors.CodeConsistency,
		},
		{
			name: "scenario id mismatch",
			modify: func(g *GoldScenario) {
				g.Scenario.ID = "scn_other"
			},
			wantCode: errors.CodeConsistency,
		},
		{
			name: "inverted span",
			modify: func(g *GoldScenario) {
				sec := g.Extraction.Sections["sec_61"]
				sec.Spans[0].End = sec.Spans[0].Start
				g.Extraction.Sections["sec_61"] = sec
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "unknown span kind",
			modify: func(g *GoldScenario) {
				sec := g.Extraction.Sections["sec_61"]
				sec.Spans[0].Kind = "footnote"
				g.Extraction.Sections["sec_61"] = sec
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "numeric without unit",
			modify: func(g *GoldScenario) {
				sec := g.Extraction.Sections["sec_61"]
				sec.Numerics[0].Unit = ""
				g.Extraction.Sections["sec_61"] = sec
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "invalid date",
			modify: func(g *GoldScenario) {
				sec := g.Extraction.Sections["sec_61"]
				sec.Dates[0].Date = "April 15th"
				g.Extraction.Sections["sec_61"] = sec
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "invalid deadline",
			modify: func(g *GoldScenario) {
				g.Outcome.Deadline = "15/04/2026"
			},
			wantCode: errors.CodeSchema,
		},
		{
			name: "outcome without jurisdictions",
			modify: func(g *GoldScenario) {
				g.Outcome.Jurisdictions = nil
			},
			wantCode: errors.CodeSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGold()
			tt.modify(&g)

			err := ValidateGold("scn_001", g)
			if err == nil {
				t.Fatal("ValidateGold() error = nil, want error")
			}
			appErr, ok := err.(*errors.AppError)
			if !ok {
				t.Fatalf("ValidateGold() error type = %T, want *AppError", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", appErr.Code, tt.wantCode)
			}
		})
	}
}

func TestValidatePrediction(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := Prediction{
			Ranking: []string{"sec_62", "sec_61", "sec_99"},
			Outcome: &PredictedOutcome{
				Outcome: Outcome{
					Jurisdictions:  []string{"US-FED"},
					FilingRequired: true,
				},
				Confidence: 0.85,
			},
		}
		if err := ValidatePrediction("scn_001", p); err != nil {
			t.Fatalf("ValidatePrediction() error = %v, want nil", err)
		}
	})

	t.Run("duplicate ranking id", func(t *testing.T) {
		p := Prediction{Ranking: []string{"sec_61", "sec_62", "sec_61"}}
		err := ValidatePrediction("scn_001", p)
		if !errors.IsConsistency(err) {
			t.Fatalf("ValidatePrediction() error = %v, want consistency error", err)
		}
	})

	t.Run("confidence out of range", func(t *testing.T) {
		p := Prediction{
			Outcome: &PredictedOutcome{
				Outcome:    Outcome{Jurisdictions: []string{"US-FED"}},
				Confidence: 1.2,
			},
		}
		err := ValidatePrediction("scn_001", p)
		if !errors.IsSchema(err) {
			t.Fatalf("ValidatePrediction() error = %v, want schema error", err)
		}
	})

	t.Run("empty ranking id", func(t *testing.T) {
		p := Prediction{Ranking: []string{"sec_61", ""}}
		err := ValidatePrediction("scn_001", p)
		if !errors.IsSchema(err) {
			t.Fatalf("ValidatePrediction() error = %v, want schema error", err)
		}
	})
}

func TestSpanLength(t *testing.T) {
	s := Span{Start: 10, End: 42}
	if s.Length() != 32 {
		t.Errorf("Length() = %d, want 32", s.Length())
	}
}
