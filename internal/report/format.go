package report

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
)

// Format renders the report as a human-readable table. The JSON encoding
// is the stable interchange form; this rendering is for terminals.
func (r *Report) Format() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Evaluation report %s (schema %s)\n", r.RunID, r.Version)
	fmt.Fprintf(&sb, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Inputs: %d scenarios, %d predictions (gold %s, pred %s)\n",
		r.Inputs.Scenarios, r.Inputs.Predictions,
		r.Inputs.GoldFingerprint, r.Inputs.PredictionFingerprint)
	if r.Malformed > 0 {
		fmt.Fprintf(&sb, "Malformed scenarios: %d\n", r.Malformed)
	}
	sb.WriteString("\n")

	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMACRO\tSCENARIOS\tEXCLUDED")
	for _, name := range r.Metrics.MetricNames() {
		m := r.Metrics.Metrics[name]
		fmt.Fprintf(w, "%s\t%.4f\t%d\t%d\n", m.Metric, m.Macro, m.Count, m.Excluded)
	}
	w.Flush()

	sb.WriteString("\n")
	if r.Calibration.Defined {
		fmt.Fprintf(&sb, "ECE: %.4f over %d predictions (%d bins)\n",
			r.Calibration.ECE, r.Calibration.Points, r.Calibration.Bins)
		jurisdictions := make([]string, 0, len(r.Calibration.ByJurisdiction))
		for j := range r.Calibration.ByJurisdiction {
			jurisdictions = append(jurisdictions, j)
		}
		sort.Strings(jurisdictions)
		for _, j := range jurisdictions {
			label := j
			if label == "" {
				label = "(untagged)"
			}
			fmt.Fprintf(&sb, "  %s: %.4f\n", label, r.Calibration.ByJurisdiction[j])
		}
	} else {
		sb.WriteString("ECE: undefined (no calibration points)\n")
	}

	if len(r.Excluded) > 0 {
		fmt.Fprintf(&sb, "\nExcluded metric instances: %d\n", len(r.Excluded))
	}

	return sb.String()
}
