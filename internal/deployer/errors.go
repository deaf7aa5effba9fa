package deployer

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrWorkloadNotFound means the service does not exist (or is inactive) in
	// the cluster. It is the only outcome that makes the reconciler create.
	ErrWorkloadNotFound = errors.New("workload not found")

	// ErrNetworkNotFound means every network discovery strategy came up empty.
	ErrNetworkNotFound = errors.New("no network found")
)

// StepError records which pipeline step aborted the run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// APIErrorCode returns the service error code carried by err, or "" when err
// did not come from an AWS API.
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
