// Package report assembles the versioned output of an evaluation run. A
// report is self-describing: it records the schema version, the scoring
// configuration in effect, and fingerprints of both input sets, so two
// reports are comparable only when those fields agree.
package report

import (
	"time"

	"github.com/lexeval/lexeval/internal/aggregate"
	"github.com/lexeval/lexeval/internal/pkg/hash"
	"github.com/lexeval/lexeval/internal/schema"
	"github.com/lexeval/lexeval/internal/scoring"
)

// Version identifies the report schema. Bump on any change to the report
// layout or to metric semantics.
const Version = "1.0.0"

// Inputs fingerprints the evaluated datasets.
type Inputs struct {
	GoldFingerprint       string `json:"gold_fingerprint"`
	PredictionFingerprint string `json:"prediction_fingerprint"`
	Scenarios             int    `json:"scenarios"`
	Predictions           int    `json:"predictions"`
}

// Calibration is the population-level calibration section. Defined is
// false when no scenario produced a calibration point.
type Calibration struct {
	Defined        bool               `json:"defined"`
	Bins           int                `json:"bins"`
	ECE            float64            `json:"ece"`
	Points         int                `json:"points"`
	ByJurisdiction map[string]float64 `json:"by_jurisdiction,omitempty"`
}

// Report is the complete result of one evaluation run.
type Report struct {
	Version     string             `json:"version"`
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Config      scoring.Config     `json:"config"`
	Inputs      Inputs             `json:"inputs"`
	Metrics     aggregate.Summary  `json:"metrics"`
	Calibration Calibration        `json:"calibration"`
	Malformed   int                `json:"malformed"`
	Excluded    []schema.Exclusion `json:"excluded,omitempty"`
}

// Builder collects the pieces of a report as the evaluation produces them.
type Builder struct {
	cfg       scoring.Config
	inputs    Inputs
	summary   aggregate.Summary
	points    []schema.CalibrationPoint
	malformed int
	now       func() time.Time
}

// NewBuilder returns a builder for the given scoring configuration.
func NewBuilder(cfg scoring.Config) *Builder {
	return &Builder{cfg: cfg, now: time.Now}
}

// WithClock overrides the timestamp source, for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// SetInputs records the dataset fingerprints and sizes.
func (b *Builder) SetInputs(inputs Inputs) *Builder {
	b.inputs = inputs
	return b
}

// SetSummary records the aggregated metric rollup.
func (b *Builder) SetSummary(summary aggregate.Summary) *Builder {
	b.summary = summary
	return b
}

// SetCalibrationPoints records the per-scenario calibration points that
// back the population-level ECE.
func (b *Builder) SetCalibrationPoints(points []schema.CalibrationPoint) *Builder {
	b.points = points
	return b
}

// SetMalformed records how many scenarios failed validation.
func (b *Builder) SetMalformed(count int) *Builder {
	b.malformed = count
	return b
}

// Build finalizes the report. The run id is derived from both input
// fingerprints and the generation time, so re-evaluating the same inputs
// yields a new run with a traceable lineage.
func (b *Builder) Build() *Report {
	at := b.now()

	calibration := Calibration{Bins: b.cfg.CalibrationBins, Points: len(b.points)}
	if ece, ok := scoring.ECE(b.points, b.cfg.CalibrationBins); ok {
		calibration.Defined = true
		calibration.ECE = ece
		calibration.ByJurisdiction = scoring.ECEByJurisdiction(b.points, b.cfg.CalibrationBins)
	}

	return &Report{
		Version:     Version,
		RunID:       hash.RunID(b.inputs.GoldFingerprint, b.inputs.PredictionFingerprint, at),
		GeneratedAt: at,
		Config:      b.cfg,
		Inputs:      b.inputs,
		Metrics:     b.summary,
		Calibration: calibration,
		Malformed:   b.malformed,
		Excluded:    b.summary.Exclusions,
	}
}
