package scoring

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/lexeval/lexeval/internal/schema"
)

func calPoint(confidence float64, correct bool, jurisdictions ...string) schema.CalibrationPoint {
	return schema.CalibrationPoint{
		Jurisdictions: jurisdictions,
		Confidence:    confidence,
		Correct:       correct,
	}
}

func TestECE(t *testing.T) {
	tests := []struct {
		name   string
		points []schema.CalibrationPoint
		bins   int
		want   float64
		wantOK bool
	}{
		{
			name:   "no points",
			points: nil,
			bins:   10,
			wantOK: false,
		},
		{
			name: "perfectly calibrated single bucket",
			// Bucket [0.7, 0.8): mean confidence 0.75, accuracy 3/4.
			points: []schema.CalibrationPoint{
				calPoint(0.75, true),
				calPoint(0.75, true),
				calPoint(0.75, true),
				calPoint(0.75, false),
			},
			bins:   10,
			want:   0,
			wantOK: true,
		},
		{
			name: "overconfident single bucket",
			// Mean confidence 0.9, accuracy 0.5, one bucket holds everything.
			points: []schema.CalibrationPoint{
				calPoint(0.9, true),
				calPoint(0.9, false),
			},
			bins:   10,
			want:   0.4,
			wantOK: true,
		},
		{
			name: "weighted across buckets",
			// Bucket 9: conf 0.9, acc 1.0, weight 2/4 -> 0.05.
			// Bucket 1: conf 0.1, acc 0.5, weight 2/4 -> 0.20.
			points: []schema.CalibrationPoint{
				calPoint(0.9, true),
				calPoint(0.9, true),
				calPoint(0.1, true),
				calPoint(0.1, false),
			},
			bins:   10,
			want:   0.25,
			wantOK: true,
		},
		{
			name: "confidence 1.0 lands in the top bucket",
			points: []schema.CalibrationPoint{
				calPoint(1.0, true),
			},
			bins:   10,
			want:   0,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ECE(tt.points, tt.bins)
			if ok != tt.wantOK {
				t.Fatalf("ECE() ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ECE() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestECE_EmptyBucketsCarryNoWeight(t *testing.T) {
	// Two populated buckets out of ten; the eight empty ones must not pull
	// the error toward zero or blow it up.
	points := []schema.CalibrationPoint{
		calPoint(0.95, true),
		calPoint(0.05, false),
	}

	got, ok := ECE(points, 10)
	if !ok {
		t.Fatal("ECE() ok = false, want true")
	}
	// Each bucket is perfectly calibrated for its single point.
	want := 0.5*math.Abs(0.95-1.0) + 0.5*math.Abs(0.05-0.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ECE() = %f, want %f", got, want)
	}
}

func TestECEByJurisdiction(t *testing.T) {
	points := []schema.CalibrationPoint{
		calPoint(0.9, true, "US-FED"),
		calPoint(0.9, false, "US-FED"),
		calPoint(0.8, true, "US-CA"),
		calPoint(0.9, true, "US-FED", "US-CA"),
	}

	got := ECEByJurisdiction(points, 10)

	want := map[string]float64{
		// US-FED: three points in one bucket, conf 0.9, accuracy 2/3.
		"US-FED": math.Abs(0.9 - 2.0/3.0),
		// US-CA: one correct point per bucket at conf 0.8 and 0.9.
		"US-CA": 0.5*math.Abs(0.8-1.0) + 0.5*math.Abs(0.9-1.0),
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("ECEByJurisdiction() mismatch (-want +got):\n%s", diff)
	}
}

func TestECEByJurisdiction_UntaggedPoints(t *testing.T) {
	points := []schema.CalibrationPoint{
		calPoint(1.0, true),
	}

	got := ECEByJurisdiction(points, 10)

	if _, ok := got[""]; !ok {
		t.Errorf("untagged points missing from result: %v", got)
	}
}
