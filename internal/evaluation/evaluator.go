// Package evaluation orchestrates scoring runs: it validates the inputs,
// fans scenarios out to the scorers, aggregates the records, and emits the
// versioned report.
package evaluation

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexeval/lexeval/internal/aggregate"
	"github.com/lexeval/lexeval/internal/bus"
	"github.com/lexeval/lexeval/internal/config"
	"github.com/lexeval/lexeval/internal/pkg/errors"
	"github.com/lexeval/lexeval/internal/pkg/hash"
	"github.com/lexeval/lexeval/internal/pkg/logger"
	"github.com/lexeval/lexeval/internal/report"
	"github.com/lexeval/lexeval/internal/schema"
	"github.com/lexeval/lexeval/internal/scoring"
)

// Evaluator scores prediction sets against gold sets.
type Evaluator struct {
	cfg     scoring.Config
	workers int
	bus     bus.Bus
	log     *logger.Logger
}

// NewEvaluator creates an evaluator from the scoring configuration. The
// bus is optional; without one, run lifecycle events are not published.
func NewEvaluator(cfg config.ScoringConfig, eventBus bus.Bus, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Default()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{
		cfg: scoring.Config{
			KValues:          cfg.KValues,
			SpanOverlap:      cfg.SpanOverlap,
			NumericTolerance: cfg.NumericTolerance,
			CalibrationBins:  cfg.CalibrationBins,
		},
		workers: workers,
		bus:     eventBus,
		log:     log,
	}
}

// scenarioOutcome is the scored output of one scenario.
type scenarioOutcome struct {
	result    scoring.Result
	point     *schema.CalibrationPoint
	malformed *schema.Exclusion
}

// Evaluate scores preds against gold and returns the aggregated report.
// Scenarios are scored concurrently but the output is deterministic: the
// same inputs and configuration always produce identical records.
func (e *Evaluator) Evaluate(ctx context.Context, gold *schema.GoldSet, preds *schema.PredictionSet) (*report.Report, error) {
	if gold == nil || len(gold.Scenarios) == 0 {
		return nil, errors.ValidationError("gold set is empty")
	}
	if preds == nil {
		preds = &schema.PredictionSet{Scenarios: map[string]schema.Prediction{}}
	}

	goldFP, err := hash.Fingerprint(gold)
	if err != nil {
		return nil, errors.InternalError("fingerprinting gold set", err)
	}
	predFP, err := hash.Fingerprint(preds)
	if err != nil {
		return nil, errors.InternalError("fingerprinting prediction set", err)
	}

	// The run id is fixed up front so the started and completed events
	// carry the same id as the final report.
	startedAt := time.Now()
	runID := hash.RunID(goldFP, predFP, startedAt)

	e.publish(ctx, bus.TopicRunStarted, bus.NewEvent("run.started", "evaluator", runID, map[string]any{
		"scenarios":   len(gold.Scenarios),
		"predictions": len(preds.Scenarios),
	}))

	ids := make([]string, 0, len(gold.Scenarios))
	for id := range gold.Scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	outcomes := make([]scenarioOutcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, id := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outcomes[i] = e.evaluateScenario(id, gold.Scenarios[id], preds)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.publish(ctx, bus.TopicRunFailed, bus.NewEvent("run.failed", "evaluator", runID, map[string]any{
			"error": err.Error(),
		}))
		return nil, errors.Wrap(errors.CodeInternal, "evaluation aborted", err)
	}

	var merged scoring.Result
	var points []schema.CalibrationPoint
	malformed := 0
	for _, out := range outcomes {
		if out.malformed != nil {
			malformed++
			merged.Exclusions = append(merged.Exclusions, *out.malformed)
			continue
		}
		merged.Merge(out.result)
		if out.point != nil {
			points = append(points, *out.point)
		}
	}

	summary := aggregate.Aggregate(merged.Records, merged.Exclusions)

	rep := report.NewBuilder(e.cfg).
		WithClock(func() time.Time { return startedAt }).
		SetInputs(report.Inputs{
			GoldFingerprint:       goldFP,
			PredictionFingerprint: predFP,
			Scenarios:             len(gold.Scenarios),
			Predictions:           len(preds.Scenarios),
		}).
		SetSummary(summary).
		SetCalibrationPoints(points).
		SetMalformed(malformed).
		Build()

	e.log.Info("Evaluation completed",
		"run_id", rep.RunID,
		"scenarios", len(gold.Scenarios),
		"malformed", malformed,
		"metrics", len(summary.Metrics),
	)

	e.publish(ctx, bus.TopicRunCompleted, bus.NewEvent("run.completed", "evaluator", rep.RunID, map[string]any{
		"scenarios": len(gold.Scenarios),
		"malformed": malformed,
	}))

	return rep, nil
}

// evaluateScenario validates and scores one scenario. A gold-side
// validation failure marks the whole scenario malformed. A missing or
// invalid prediction is a full miss: every defined metric takes its worst
// value, and the prediction contributes no calibration point.
func (e *Evaluator) evaluateScenario(id string, gold schema.GoldScenario, preds *schema.PredictionSet) scenarioOutcome {
	if err := schema.ValidateGold(id, gold); err != nil {
		e.log.Warn("Malformed gold scenario", "scenario_id", id, "error", err.Error())
		return scenarioOutcome{malformed: malformedExclusion(id, err)}
	}

	pred, ok := preds.Scenarios[id]
	if ok {
		if err := schema.ValidatePrediction(id, pred); err != nil {
			e.log.Warn("Invalid prediction, scoring as full miss", "scenario_id", id, "error", err.Error())
			ok = false
		}
	}

	if !ok {
		return scoreScenario(gold, nil, schema.Extraction{}, nil, e.cfg)
	}
	return scoreScenario(gold, pred.Ranking, pred.Extraction, pred.Outcome, e.cfg)
}

func scoreScenario(gold schema.GoldScenario, ranking []string, extraction schema.Extraction, outcome *schema.PredictedOutcome, cfg scoring.Config) scenarioOutcome {
	var result scoring.Result
	result.Merge(scoring.ScoreRetrieval(gold, ranking, cfg))
	result.Merge(scoring.ScoreExtraction(gold, extraction, cfg))
	reasoning, point := scoring.ScoreReasoning(gold, outcome, cfg)
	result.Merge(reasoning)
	return scenarioOutcome{result: result, point: point}
}

func malformedExclusion(id string, err error) *schema.Exclusion {
	code := errors.CodeSchema
	if errors.IsConsistency(err) {
		code = errors.CodeConsistency
	}
	return &schema.Exclusion{
		ScenarioID: id,
		Code:       code,
		Reason:     err.Error(),
	}
}

func (e *Evaluator) publish(ctx context.Context, topic string, event bus.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, topic, event); err != nil {
		e.log.Warn("Failed to publish run event", "topic", topic, "error", err.Error())
	}
}
