package analysis

import "github.com/abelbrown/waterlens/internal/workflow"

// StepState is how one step is rendered.
type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepDone
	StepFailed
)

func (s StepState) String() string {
	switch s {
	case StepActive:
		return "processing"
	case StepDone:
		return "completed"
	case StepFailed:
		return "error"
	}
	return "pending"
}

// StepInfo is the display text for a step.
type StepInfo struct {
	Step        workflow.Step
	Label       string
	Description string
}

// StepInfos describes the ordered steps, earliest first.
var StepInfos = []StepInfo{
	{workflow.StepUpload, "Uploading file", "Sending the file to the server"},
	{workflow.StepParsing, "Reading content", "Extracting data from the PDF"},
	{workflow.StepAnalysis, "AI analysis", "Analyzing the test results"},
	{workflow.StepGeneration, "Generating report", "Building the final report"},
	{workflow.StepComplete, "Done", "Analysis ready to download"},
}

// StepStatuses classifies every ordered step against the latest update.
// Steps before the current one are done, the current one is active (or
// failed when the update carries an error), later ones are pending. With no
// update, or an update for a step outside the ordered set, all are pending.
func StepStatuses(u *workflow.Update) []StepState {
	out := make([]StepState, len(workflow.Steps))
	if u == nil {
		return out
	}
	cur := u.Step.Index()
	if cur < 0 {
		return out
	}
	for i := range workflow.Steps {
		switch {
		case i < cur:
			out[i] = StepDone
		case i == cur && u.Failed():
			out[i] = StepFailed
		case i == cur:
			out[i] = StepActive
		}
	}
	return out
}
