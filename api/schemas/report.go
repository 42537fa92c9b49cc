// api/schemas/report.go
package schemas

import "time"

// -- Fill Result Schemas --

// FieldOutcome classifies how a single field attempt ended.
type FieldOutcome string

const (
	OutcomeFilled  FieldOutcome = "filled"
	OutcomeSkipped FieldOutcome = "skipped"
	OutcomeError   FieldOutcome = "error"
)

// Reason codes attached to skipped and errored field results.
const (
	ReasonNoMapping        = "no_mapping"
	ReasonFillFailed       = "fill_failed"
	ReasonStaleElement     = "stale_element"
	ReasonNoMatchingOption = "no_matching_option"
	ReasonUnsupportedType  = "unsupported_type"
)

// FieldResult records the outcome of one field attempt, including which
// interaction strategy succeeded and where the value came from.
type FieldResult struct {
	FieldID    string       `json:"field_id"`
	Label      string       `json:"label,omitempty"`
	Selector   string       `json:"selector,omitempty"`
	Outcome    FieldOutcome `json:"outcome"`
	Reason     string       `json:"reason,omitempty"`
	Value      string       `json:"value,omitempty"`
	Source     ValueSource  `json:"source,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	Strategy   string       `json:"strategy,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

// FillReport summarizes one form-fill session. A failed field never aborts
// the session; it is counted here instead.
type FillReport struct {
	SessionID string        `json:"session_id"`
	Target    string        `json:"target"`
	Platform  Platform      `json:"platform,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Filled    int           `json:"filled"`
	Skipped   int           `json:"skipped"`
	Errored   int           `json:"errored"`
	Fields    []FieldResult `json:"fields"`
}

// Tally recomputes the outcome counters from the per-field results.
func (r *FillReport) Tally() {
	r.Filled, r.Skipped, r.Errored = 0, 0, 0
	for _, f := range r.Fields {
		switch f.Outcome {
		case OutcomeFilled:
			r.Filled++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeError:
			r.Errored++
		}
	}
}
