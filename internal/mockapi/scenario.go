package mockapi

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/waterlens/internal/workflow"
)

// Frame is one scripted stream frame. When Raw is set it is written verbatim
// as the data payload instead of the encoded update, which is how a scenario
// injects malformed frames.
type Frame struct {
	Delay           time.Duration `yaml:"delay"`
	workflow.Update `yaml:",inline"`
	Raw             string `yaml:"raw,omitempty"`
}

// Scenario scripts what every upload to the mock server goes through.
type Scenario struct {
	Name   string  `yaml:"name"`
	Frames []Frame `yaml:"frames"`

	// ResultMarkdown is the report returned once the last frame completed.
	ResultMarkdown string `yaml:"result_markdown"`

	// RejectUpload, when set, makes uploads answer success=false with this
	// message.
	RejectUpload string `yaml:"reject_upload,omitempty"`

	// NaiveTimes writes datetimes without a zone offset, as a service
	// running on a naive local clock does.
	NaiveTimes bool `yaml:"naive_times,omitempty"`
}

// Outcome is the status an analysis ends with after its last frame:
// "completed", "error", or "processing" when the script stops without a
// terminal frame.
func (s Scenario) Outcome() string {
	for i := len(s.Frames) - 1; i >= 0; i-- {
		f := s.Frames[i]
		if f.Raw != "" {
			continue
		}
		if f.Succeeded() {
			return "completed"
		}
		if f.Failed() {
			return "error"
		}
		return "processing"
	}
	return "processing"
}

// Validate checks that the scenario can be replayed.
func (s Scenario) Validate() error {
	if len(s.Frames) == 0 && s.RejectUpload == "" {
		return fmt.Errorf("scenario %q has no frames", s.Name)
	}
	for i, f := range s.Frames {
		if f.Delay < 0 {
			return fmt.Errorf("scenario %q frame %d: negative delay", s.Name, i)
		}
		if f.Raw == "" && f.Step == "" {
			return fmt.Errorf("scenario %q frame %d: missing step", s.Name, i)
		}
	}
	return nil
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(data []byte) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// DefaultScenario walks through every step and completes.
func DefaultScenario(step time.Duration) Scenario {
	f := func(s workflow.Step, st workflow.Status, msg string, progress, elapsed float64) Frame {
		return Frame{
			Delay:  step,
			Update: workflow.Update{Step: s, Status: st, Message: msg, Progress: progress, ElapsedTime: elapsed},
		}
	}
	return Scenario{
		Name: "default",
		Frames: []Frame{
			f(workflow.StepUpload, workflow.StatusCompleted, "File received", 10, 0.5),
			f(workflow.StepParsing, workflow.StatusProcessing, "Extracting test results", 30, 2),
			f(workflow.StepAnalysis, workflow.StatusProcessing, "Comparing against drinking water limits", 60, 8),
			f(workflow.StepGeneration, workflow.StatusProcessing, "Building the report", 85, 12),
			f(workflow.StepComplete, workflow.StatusCompleted, "Analysis ready", 100, 14),
		},
		ResultMarkdown: defaultReport,
	}
}

const defaultReport = `# Water Test Analysis

## Summary

All measured parameters are within the limits for drinking water.

| Parameter | Result | Limit |
|---|---|---|
| pH | 7.4 | 6.5 - 9.5 |
| Nitrates | 12 mg/l | 50 mg/l |
| Iron | 0.08 mg/l | 0.2 mg/l |
| Hardness | 280 mg/l CaCO3 | 60 - 500 mg/l |

## Recommendations

No treatment is required. Repeat the test in twelve months.
`
