// Package schema defines the shared value types exchanged between the
// gold/prediction loaders, the three scorers, and the aggregator.
// A gold set and a prediction set are read-only snapshots for the duration
// of one evaluation run; nothing here is mutated after loading.
package schema

import "time"

// ISODateLayout is the date layout used by all gold and predicted dates.
const ISODateLayout = "2006-01-02"

// Relevance grades. Sections listed in gold retrieval are relevant by
// definition; grade encodes how strongly.
const (
	GradeMarginal    = 1
	GradeRelevant    = 2
	GradeControlling = 3
)

// Scenario identifies one evaluated fact pattern and its scope.
type Scenario struct {
	ID            string   `json:"id" yaml:"id"`
	Jurisdictions []string `json:"jurisdictions" yaml:"jurisdictions"`
	TaxTypes      []string `json:"tax_types" yaml:"tax_types"`
}

// GoldSection is one section annotation in a gold retrieval entry.
type GoldSection struct {
	SectionID   string `json:"section_id" yaml:"section_id"`
	Grade       int    `json:"grade" yaml:"grade"` // 1..3
	Mandatory   bool   `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Controlling bool   `json:"controlling,omitempty" yaml:"controlling,omitempty"`
}

// GoldRetrieval is the graded section set for one scenario.
// Invariant: at most one section is marked controlling.
type GoldRetrieval struct {
	Sections []GoldSection `json:"sections" yaml:"sections"`
}

// SpanKind tags the semantic role of an extracted text span.
type SpanKind string

// Span kinds. Evidence spans are scored as a separate attribution family.
const (
	SpanCondition  SpanKind = "condition"
	SpanException  SpanKind = "exception"
	SpanDefinition SpanKind = "definition"
	SpanEvidence   SpanKind = "evidence"
)

// MatchKinds are the span kinds pooled into the headline span F1.
var MatchKinds = []SpanKind{SpanCondition, SpanException, SpanDefinition}

// Span is a contiguous character range [Start, End) in section text.
type Span struct {
	Kind  SpanKind `json:"kind" yaml:"kind"`
	Start int      `json:"char_start" yaml:"char_start"`
	End   int      `json:"char_end" yaml:"char_end"`
	Text  string   `json:"text" yaml:"text"`
}

// Length returns the span length in characters.
func (s Span) Length() int {
	return s.End - s.Start
}

// NumericValue is an extracted figure with its qualifying context.
type NumericValue struct {
	Value  float64 `json:"value" yaml:"value"`
	Unit   string  `json:"unit" yaml:"unit"`
	Period string  `json:"period" yaml:"period"`
	Scope  string  `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// DateValue is an extracted date in ISO-8601 form.
type DateValue struct {
	Date string `json:"iso_date" yaml:"iso_date"`
	Kind string `json:"date_kind,omitempty" yaml:"date_kind,omitempty"`
}

// Parse parses the ISO date.
func (d DateValue) Parse() (time.Time, error) {
	return time.Parse(ISODateLayout, d.Date)
}

// SectionExtraction holds the typed annotations for one statute section.
type SectionExtraction struct {
	Spans    []Span         `json:"spans,omitempty" yaml:"spans,omitempty"`
	Numerics []NumericValue `json:"numeric_values,omitempty" yaml:"numeric_values,omitempty"`
	Dates    []DateValue    `json:"dates,omitempty" yaml:"dates,omitempty"`
}

// Extraction maps section id to its annotations. The same shape serves gold
// and predicted roles; a predicted extraction is unattributed until matched.
type Extraction struct {
	Sections map[string]SectionExtraction `json:"sections" yaml:"sections"`
}

// Outcome is a structured reasoning result for one scenario.
type Outcome struct {
	Jurisdictions  []string `json:"jurisdictions" yaml:"jurisdictions"`
	TaxTypes       []string `json:"tax_types" yaml:"tax_types"`
	Forms          []string `json:"required_forms" yaml:"required_forms"`
	Deadline       string   `json:"filing_deadline,omitempty" yaml:"filing_deadline,omitempty"`
	FilingRequired bool     `json:"filing_required" yaml:"filing_required"`
}

// PredictedOutcome is an outcome plus the system's confidence in it.
type PredictedOutcome struct {
	Outcome    `yaml:",inline"`
	Confidence float64 `json:"confidence" yaml:"confidence"` // [0, 1]
}

// GoldScenario bundles the three gold structures for one scenario.
type GoldScenario struct {
	Scenario   Scenario      `json:"scenario" yaml:"scenario"`
	Retrieval  GoldRetrieval `json:"retrieval" yaml:"retrieval"`
	Extraction Extraction    `json:"extraction" yaml:"extraction"`
	Outcome    *Outcome      `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// Prediction bundles one system's output for one scenario.
type Prediction struct {
	Ranking    []string          `json:"ranking" yaml:"ranking"` // rank order meaningful
	Extraction Extraction        `json:"extraction" yaml:"extraction"`
	Outcome    *PredictedOutcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// GoldSet is the full gold annotation set for an evaluation run.
type GoldSet struct {
	Scenarios map[string]GoldScenario `json:"scenarios" yaml:"scenarios"`
}

// PredictionSet is the full system prediction set for an evaluation run.
type PredictionSet struct {
	Scenarios map[string]Prediction `json:"scenarios" yaml:"scenarios"`
}

// ScoreRecord is the universal scorer output unit. Scorers emit records,
// never pre-aggregated scalars, so the aggregator is the single source of
// truth for averaging semantics.
type ScoreRecord struct {
	ScenarioID   string  `json:"scenario_id"`
	Metric       string  `json:"metric"`
	Value        float64 `json:"value"`
	Jurisdiction string  `json:"jurisdiction"`
}

// Exclusion marks a metric (or a whole scenario, when Metric is empty) that
// contributed no value to aggregation, with the reason preserved for audit.
type Exclusion struct {
	ScenarioID string `json:"scenario_id"`
	Metric     string `json:"metric,omitempty"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

// CalibrationPoint is one (confidence, correctness) observation used for
// population-level calibration metrics.
type CalibrationPoint struct {
	ScenarioID    string   `json:"scenario_id"`
	Jurisdictions []string `json:"jurisdictions"`
	Confidence    float64  `json:"confidence"`
	Correct       bool     `json:"correct"`
}
