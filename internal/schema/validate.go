package schema

import (
	"fmt"

	"github.com/lexeval/lexeval/internal/pkg/errors"
)

// ValidateGold checks a gold scenario against the schema and its invariants.
// Returns a SchemaError or ConsistencyError; the caller excludes the scenario
// and continues the run.
func ValidateGold(id string, g GoldScenario) error {
	if g.Scenario.ID != "" && g.Scenario.ID != id {
		return errors.ConsistencyError(id, fmt.Sprintf("scenario id mismatch: %q", g.Scenario.ID))
	}

	controlling := 0
	seen := make(map[string]bool, len(g.Retrieval.Sections))
	for _, sec := range g.Retrieval.Sections {
		if sec.SectionID == "" {
			return errors.SchemaError(id, "gold section missing section id")
		}
		if seen[sec.SectionID] {
			return errors.ConsistencyError(id, fmt.Sprintf("duplicate gold section %q", sec.SectionID))
		}
		seen[sec.SectionID] = true
		if sec.Grade < GradeMarginal || sec.Grade > GradeControlling {
			return errors.SchemaError(id, fmt.Sprintf("section %q has invalid grade %d", sec.SectionID, sec.Grade))
		}
		if sec.Controlling {
			controlling++
		}
	}
	if controlling > 1 {
		return errors.ConsistencyError(id, fmt.Sprintf("%d controlling sections, at most one allowed", controlling))
	}

	if err := validateExtraction(id, g.Extraction); err != nil {
		return err
	}

	if g.Outcome != nil {
		if err := validateOutcome(id, *g.Outcome); err != nil {
			return err
		}
	}

	return nil
}

// ValidatePrediction checks a predicted scenario. A duplicate section id in
// the ranking is a scoring error, never silently deduplicated.
func ValidatePrediction(id string, p Prediction) error {
	seen := make(map[string]bool, len(p.Ranking))
	for _, sectionID := range p.Ranking {
		if sectionID == "" {
			return errors.SchemaError(id, "ranking contains empty section id")
		}
		if seen[sectionID] {
			return errors.ConsistencyError(id, fmt.Sprintf("duplicate section %q in ranking", sectionID))
		}
		seen[sectionID] = true
	}

	if err := validateExtraction(id, p.Extraction); err != nil {
		return err
	}

	if p.Outcome != nil {
		if err := validateOutcome(id, p.Outcome.Outcome); err != nil {
			return err
		}
		if p.Outcome.Confidence < 0 || p.Outcome.Confidence > 1 {
			return errors.SchemaError(id, fmt.Sprintf("confidence %.3f outside [0, 1]", p.Outcome.Confidence))
		}
	}

	return nil
}

func validateExtraction(id string, e Extraction) error {
	for sectionID, sec := range e.Sections {
		for _, span := range sec.Spans {
			switch span.Kind {
			case SpanCondition, SpanException, SpanDefinition, SpanEvidence:
			default:
				return errors.SchemaError(id, fmt.Sprintf("section %q has unknown span kind %q", sectionID, span.Kind))
			}
			if span.Start < 0 || span.End <= span.Start {
				return errors.SchemaError(id,
					fmt.Sprintf("section %q has invalid span [%d, %d)", sectionID, span.Start, span.End))
			}
		}
		for _, num := range sec.Numerics {
			if num.Unit == "" {
				return errors.SchemaError(id, fmt.Sprintf("section %q has numeric value without unit", sectionID))
			}
		}
		for _, date := range sec.Dates {
			if _, err := date.Parse(); err != nil {
				return errors.SchemaError(id, fmt.Sprintf("section %q has invalid date %q", sectionID, date.Date))
			}
		}
	}
	return nil
}

func validateOutcome(id string, o Outcome) error {
	if len(o.Jurisdictions) == 0 {
		return errors.SchemaError(id, "outcome missing jurisdiction set")
	}
	if o.Deadline != "" {
		if _, err := (DateValue{Date: o.Deadline}).Parse(); err != nil {
			return errors.SchemaError(id, fmt.Sprintf("invalid filing deadline %q", o.Deadline))
		}
	}
	return nil
}
