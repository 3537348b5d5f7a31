package gitrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/temirov/git-global/internal/repos/shared"
)

const inspectionErrorTemplateConstant = "%s: %s: %v"

// InspectionError classifies a failed inspection of one repository.
type InspectionError struct {
	Reason shared.FailureReason
	Path   string
	Err    error
}

// Error describes the failure.
func (inspectionError InspectionError) Error() string {
	return fmt.Sprintf(inspectionErrorTemplateConstant, inspectionError.Path, inspectionError.Reason, inspectionError.Err)
}

// Unwrap exposes the underlying cause.
func (inspectionError InspectionError) Unwrap() error {
	return inspectionError.Err
}

// FailureReasonOf maps any inspection error onto a failure reason.
func FailureReasonOf(inspectionFailure error) shared.FailureReason {
	if errors.Is(inspectionFailure, context.Canceled) || errors.Is(inspectionFailure, context.DeadlineExceeded) {
		return shared.FailureReasonCancelled
	}
	var inspectionError InspectionError
	if errors.As(inspectionFailure, &inspectionError) {
		return inspectionError.Reason
	}
	return shared.FailureReasonInspectorError
}
