// Package workflow defines the analysis workflow vocabulary shared by the
// transport client, the frame decoder and the state machine.
//
// Steps carry an explicit ordinal. The server may emit steps outside the five
// ordered ones (an initial "status" snapshot, a terminal "error"); those
// decode fine but have no ordinal.
package workflow

// Step is one phase of the server-side analysis.
type Step string

const (
	StepUpload     Step = "upload"
	StepParsing    Step = "parsing"
	StepAnalysis   Step = "analysis"
	StepGeneration Step = "generation"
	StepComplete   Step = "complete"
)

// Steps lists the ordered steps, earliest first.
var Steps = []Step{StepUpload, StepParsing, StepAnalysis, StepGeneration, StepComplete}

// Index returns the step's ordinal, or -1 for steps outside the ordered set.
func (s Step) Index() int {
	switch s {
	case StepUpload:
		return 0
	case StepParsing:
		return 1
	case StepAnalysis:
		return 2
	case StepGeneration:
		return 3
	case StepComplete:
		return 4
	}
	return -1
}

// Known reports whether s is one of the ordered steps.
func (s Step) Known() bool {
	return s.Index() >= 0
}

// Before reports whether s comes strictly before other.
// Unknown steps are never before anything.
func (s Step) Before(other Step) bool {
	i, j := s.Index(), other.Index()
	return i >= 0 && j >= 0 && i < j
}

// Status is the state of the current step as reported by the server.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Update is one decoded stream frame. Each update supersedes the previous one.
type Update struct {
	Step        Step    `json:"step" yaml:"step"`
	Status      Status  `json:"status" yaml:"status"`
	Message     string  `json:"message" yaml:"message"`
	Progress    float64 `json:"progress" yaml:"progress"`
	ElapsedTime float64 `json:"elapsedTime" yaml:"elapsedTime"`
}

// Succeeded reports whether the update marks the whole workflow as done.
func (u Update) Succeeded() bool {
	return u.Step == StepComplete && u.Status == StatusCompleted
}

// Failed reports whether the server flagged the workflow as failed.
func (u Update) Failed() bool {
	return u.Status == StatusError
}

// ClampedProgress returns Progress limited to [0, 100] as a fraction in [0, 1].
func (u Update) ClampedProgress() float64 {
	switch {
	case u.Progress <= 0:
		return 0
	case u.Progress >= 100:
		return 1
	}
	return u.Progress / 100
}
