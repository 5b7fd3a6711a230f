package domain

import (
	"fmt"
	"time"
)

type DiagnosticState string

const (
	DiagnosticFlagged    DiagnosticState = "flagged"
	DiagnosticAPIChecked DiagnosticState = "api_checked"
	DiagnosticRuleOnly   DiagnosticState = "rule_only"
	DiagnosticSuggested  DiagnosticState = "suggested"
	DiagnosticApplied    DiagnosticState = "applied"
	DiagnosticRejected   DiagnosticState = "rejected"
)

type Diagnostic struct {
	ExternalID         string
	Source             OperationSource
	Amount             int64
	CreatedAt          time.Time
	CurrentStatus      string
	SuggestedStatus    string
	APIStatus          *string
	Confidence         int
	IsAnomaly          bool
	HoursSinceCreation float64
	State              DiagnosticState
}

var diagnosticTransitions = map[DiagnosticState][]DiagnosticState{
	DiagnosticFlagged:    {DiagnosticAPIChecked, DiagnosticRuleOnly},
	DiagnosticAPIChecked: {DiagnosticSuggested},
	DiagnosticRuleOnly:   {DiagnosticSuggested},
	DiagnosticSuggested:  {DiagnosticApplied, DiagnosticRejected},
}

func (s DiagnosticState) CanTransitionTo(next DiagnosticState) bool {
	for _, allowed := range diagnosticTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Advance moves d to next, refusing transitions the review flow does not allow.
func (d *Diagnostic) Advance(next DiagnosticState) error {
	if !d.State.CanTransitionTo(next) {
		return fmt.Errorf("diagnostic %s: %s -> %s: %w", d.ExternalID, d.State, next, ErrInvalidTransition)
	}
	d.State = next
	return nil
}
