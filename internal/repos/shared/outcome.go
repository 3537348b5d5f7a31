package shared

// FailureReason classifies why a repository could not be inspected.
type FailureReason string

// Failure reasons recorded in query outcomes.
const (
	FailureReasonMissing             FailureReason = "missing"
	FailureReasonNotARepository      FailureReason = "not_a_repository"
	FailureReasonCorruptedReferences FailureReason = "corrupted_references"
	FailureReasonInspectorError      FailureReason = "inspector_error"
	FailureReasonCancelled           FailureReason = "cancelled"
)

// Findings holds what an inspection found in one repository.
type Findings struct {
	Lines      []string
	AheadCount int
}

// Failure describes an inspection that did not produce findings.
type Failure struct {
	Reason  FailureReason
	Message string
}

// Outcome is either Findings or a Failure for one repository.
type Outcome struct {
	Findings Findings
	Failure  *Failure
}

// SucceededWith wraps findings into an outcome.
func SucceededWith(findings Findings) Outcome {
	return Outcome{Findings: findings}
}

// FailedWith wraps a failure into an outcome.
func FailedWith(reason FailureReason, message string) Outcome {
	return Outcome{Failure: &Failure{Reason: reason, Message: message}}
}

// Failed reports whether the outcome carries a failure.
func (outcome Outcome) Failed() bool {
	return outcome.Failure != nil
}

// Missing reports whether the repository was confirmed absent from disk.
func (outcome Outcome) Missing() bool {
	return outcome.Failure != nil && outcome.Failure.Reason == FailureReasonMissing
}

// Relevant reports whether the outcome has anything to show for the kind.
func (outcome Outcome) Relevant(kind QueryKind) bool {
	if outcome.Failed() {
		return true
	}
	switch kind {
	case QueryKindList:
		return true
	case QueryKindAhead:
		return outcome.Findings.AheadCount > 0
	default:
		return len(outcome.Findings.Lines) > 0
	}
}
