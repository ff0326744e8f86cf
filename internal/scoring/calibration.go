package scoring

import (
	"math"

	"github.com/lexeval/lexeval/internal/schema"
)

// ECE computes the expected calibration error over a prediction population:
// confidences are partitioned into bins equal-width buckets over [0, 1], and
// each non-empty bucket contributes |mean confidence - empirical accuracy|
// weighted by its population fraction. Empty buckets carry zero weight.
// Returns ok=false when there are no points to bin.
func ECE(points []schema.CalibrationPoint, bins int) (ece float64, ok bool) {
	if len(points) == 0 || bins < 1 {
		return 0, false
	}

	type bucket struct {
		confidence float64
		accuracy   float64
		count      int
	}
	buckets := make([]bucket, bins)

	for _, p := range points {
		idx := int(p.Confidence * float64(bins))
		if idx >= bins {
			// Confidence 1.0 lands in the top bucket.
			idx = bins - 1
		}
		buckets[idx].confidence += p.Confidence
		buckets[idx].accuracy += boolScore(p.Correct)
		buckets[idx].count++
	}

	total := float64(len(points))
	for _, b := range buckets {
		if b.count == 0 {
			continue
		}
		n := float64(b.count)
		weight := n / total
		ece += weight * math.Abs(b.confidence/n-b.accuracy/n)
	}
	return ece, true
}

// ECEByJurisdiction computes ECE separately for each jurisdiction tag found
// in the calibration points. A point tagged with several jurisdictions
// contributes to each of them, mirroring how ScoreRecords fan out.
func ECEByJurisdiction(points []schema.CalibrationPoint, bins int) map[string]float64 {
	grouped := make(map[string][]schema.CalibrationPoint)
	for _, p := range points {
		jurisdictions := p.Jurisdictions
		if len(jurisdictions) == 0 {
			jurisdictions = []string{""}
		}
		for _, j := range jurisdictions {
			grouped[j] = append(grouped[j], p)
		}
	}

	out := make(map[string]float64, len(grouped))
	for j, pts := range grouped {
		if ece, ok := ECE(pts, bins); ok {
			out[j] = ece
		}
	}
	return out
}
