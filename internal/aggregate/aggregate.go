// Package aggregate rolls per-scenario score records up into corpus-level
// metric summaries. Aggregation is macro over jurisdictions: each
// jurisdiction's scenarios are averaged first, then the jurisdiction means
// are averaged with equal weight, so a jurisdiction with few scenarios
// counts as much as one with many.
package aggregate

import (
	"sort"

	"github.com/lexeval/lexeval/internal/schema"
)

// GroupStat is the mean and population of one (metric, jurisdiction) group.
type GroupStat struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// MetricSummary is the rollup for a single metric.
type MetricSummary struct {
	Metric         string               `json:"metric"`
	Macro          float64              `json:"macro"`
	ByJurisdiction map[string]GroupStat `json:"by_jurisdiction"`
	Count          int                  `json:"count"`
	Excluded       int                  `json:"excluded"`
}

// Summary holds every metric's rollup plus the exclusions that explain
// which scenarios were left out of which means.
type Summary struct {
	Metrics    map[string]MetricSummary `json:"metrics"`
	Exclusions []schema.Exclusion       `json:"exclusions,omitempty"`
}

// MetricNames returns the summarized metric names in sorted order.
func (s Summary) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for name := range s.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregate computes the macro rollup of a run's score records. Metrics
// that were excluded for every scenario produce no summary entry; their
// exclusions are still carried so the report can say why a metric is
// absent.
func Aggregate(records []schema.ScoreRecord, exclusions []schema.Exclusion) Summary {
	type groupKey struct {
		metric       string
		jurisdiction string
	}
	type groupAcc struct {
		sum   float64
		count int
	}
	groups := make(map[groupKey]*groupAcc)

	for _, r := range records {
		key := groupKey{metric: r.Metric, jurisdiction: r.Jurisdiction}
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{}
			groups[key] = acc
		}
		acc.sum += r.Value
		acc.count++
	}

	excludedByMetric := make(map[string]int)
	for _, e := range exclusions {
		excludedByMetric[e.Metric]++
	}

	metrics := make(map[string]MetricSummary)
	for key, acc := range groups {
		summary, ok := metrics[key.metric]
		if !ok {
			summary = MetricSummary{
				Metric:         key.metric,
				ByJurisdiction: make(map[string]GroupStat),
				Excluded:       excludedByMetric[key.metric],
			}
		}
		summary.ByJurisdiction[key.jurisdiction] = GroupStat{
			Mean:  acc.sum / float64(acc.count),
			Count: acc.count,
		}
		summary.Count += acc.count
		metrics[key.metric] = summary
	}

	for name, summary := range metrics {
		total := 0.0
		for _, stat := range summary.ByJurisdiction {
			total += stat.Mean
		}
		summary.Macro = total / float64(len(summary.ByJurisdiction))
		metrics[name] = summary
	}

	return Summary{Metrics: metrics, Exclusions: exclusions}
}
