package analysis

import (
	"fmt"

	"github.com/abelbrown/waterlens/internal/workflow"
)

// WorkflowError is a failure reported by the server inside the stream.
type WorkflowError struct {
	Step    workflow.Step
	Message string
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("analysis failed at %s: %s", e.Step, e.Message)
}
