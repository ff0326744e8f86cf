// Package runstore persists evaluation runs. A run is one scored
// comparison of a prediction set against a gold set, identified by the
// report's run id.
package runstore

import (
	"fmt"
	"regexp"
	"time"

	"github.com/lexeval/lexeval/internal/report"
)

// Run is a stored evaluation run.
type Run struct {
	ID        string         `json:"id"`
	Label     string         `json:"label,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Report    *report.Report `json:"report"`
}

// NewRun wraps a report for storage. The run inherits the report's id and
// generation time so the stored record and the report never disagree.
func NewRun(r *report.Report, label string) *Run {
	return &Run{
		ID:        r.RunID,
		Label:     label,
		CreatedAt: r.GeneratedAt,
		Report:    r,
	}
}

// runIDRegex matches ids produced by the report builder.
var runIDRegex = regexp.MustCompile(`^run-[0-9a-f]+$`)

// MaxLabelLength bounds the optional human-readable run label.
const MaxLabelLength = 128

// Validate checks a run before it is persisted.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	if !runIDRegex.MatchString(r.ID) {
		return fmt.Errorf("run id %q is not a valid run identifier", r.ID)
	}
	if len(r.Label) > MaxLabelLength {
		return fmt.Errorf("run label cannot exceed %d characters", MaxLabelLength)
	}
	if r.Report == nil {
		return fmt.Errorf("run must carry a report")
	}
	if r.Report.RunID != r.ID {
		return fmt.Errorf("run id %q does not match report run id %q", r.ID, r.Report.RunID)
	}
	return nil
}
