// Package analysis is the client-side workflow state machine.
//
// A Session moves through upload -> processing -> completed | error. It does
// no I/O: each transition returns an Effect naming the request the driver
// (the TUI or the CLI) should perform next, and the driver reports the
// outcome back through another transition. A Session is not goroutine-safe;
// it is only mutated from the driver's single event loop.
package analysis

import (
	"errors"

	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/workflow"
)

// State is the top-level application state.
type State int

const (
	StateUpload State = iota
	StateProcessing
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateUpload:
		return "upload"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Terminal reports whether only Reset can leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Effect is the I/O a transition asks the driver to perform.
type Effect int

const (
	EffectNone Effect = iota
	EffectUpload
	EffectStream
	EffectFetchResult
)

func (e Effect) String() string {
	switch e {
	case EffectUpload:
		return "upload"
	case EffectStream:
		return "stream"
	case EffectFetchResult:
		return "fetch-result"
	}
	return "none"
}

// Stage identifies which request failed.
type Stage int

const (
	StageUpload Stage = iota
	StageStream
	StageResult
)

// User-facing failure messages.
const (
	MsgUploadFailed   = "Upload failed"
	MsgAnalysisFailed = "Analysis failed"
	MsgResultFailed   = "Failed to retrieve analysis result"
	MsgStreamEnded    = "Stream ended before analysis completed"
	MsgStreamFailed   = "Lost connection to the analysis stream"
)

// Session is the state of one analysis attempt.
type Session struct {
	State        State
	SelectedFile *intake.File
	AnalysisID   string
	Workflow     *workflow.Update // latest update, nil before the first frame
	Result       *api.AnalysisResult
	Err          string

	// Cause is the typed error behind Err, when there is one.
	Cause error

	// Generation increments on every Reset and every new analysis, so the
	// driver can drop messages that belong to an abandoned stream.
	Generation uint64

	fetchRequested bool
}

// NewSession returns a session in the upload state.
func NewSession() *Session {
	return &Session{State: StateUpload}
}

// SelectFile records f as the file to analyze, replacing any previous one.
// Ignored outside the upload state.
func (s *Session) SelectFile(f intake.File) {
	if s.State != StateUpload {
		return
	}
	s.SelectedFile = &f
	s.Err = ""
	s.Cause = nil
}

// Reject records a validation failure without leaving the upload state.
func (s *Session) Reject(verr *intake.ValidationError) {
	if s.State != StateUpload || verr == nil {
		return
	}
	s.SelectedFile = nil
	s.Err = verr.Message
	s.Cause = verr
}

// ClearFile removes the selected file.
func (s *Session) ClearFile() {
	if s.State != StateUpload {
		return
	}
	s.SelectedFile = nil
}

// CanStart reports whether Start would begin an upload.
func (s *Session) CanStart() bool {
	return s.State == StateUpload && s.SelectedFile != nil
}

// Start begins processing the selected file.
func (s *Session) Start() Effect {
	if !s.CanStart() {
		return EffectNone
	}
	s.State = StateProcessing
	s.Err = ""
	s.Cause = nil
	s.Generation++
	return EffectUpload
}

// UploadSucceeded handles the upload response. A response with success
// false is a failure even though the request itself succeeded.
func (s *Session) UploadSucceeded(resp api.UploadResponse) Effect {
	if s.State != StateProcessing || s.AnalysisID != "" {
		return EffectNone
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = MsgUploadFailed
		}
		s.fail(msg, errors.New(msg))
		return EffectNone
	}
	s.AnalysisID = resp.AnalysisID
	return EffectStream
}

// Apply records a streamed update. The first complete/completed update asks
// for the result; an error status ends the session.
func (s *Session) Apply(u workflow.Update) Effect {
	if s.State != StateProcessing {
		return EffectNone
	}
	s.Workflow = &u

	switch {
	case u.Succeeded():
		if s.fetchRequested {
			return EffectNone
		}
		s.fetchRequested = true
		return EffectFetchResult
	case u.Failed():
		msg := u.Message
		if msg == "" {
			msg = MsgAnalysisFailed
		}
		s.fail(msg, &WorkflowError{Step: u.Step, Message: msg})
	}
	return EffectNone
}

// ResultFetched stores the report and completes the session.
func (s *Session) ResultFetched(res api.AnalysisResult) {
	if s.State != StateProcessing || !s.fetchRequested {
		return
	}
	s.Result = &res
	s.State = StateCompleted
}

// Fail moves the session to the error state because the request at stage
// failed. Ignored once the session is terminal.
func (s *Session) Fail(stage Stage, err error) {
	if s.State != StateProcessing {
		return
	}
	var msg string
	switch stage {
	case StageResult:
		msg = MsgResultFailed
	case StageStream:
		msg = MsgStreamFailed
		if err != nil {
			msg = err.Error()
		}
	default:
		msg = MsgUploadFailed
		if err != nil {
			msg = err.Error()
		}
	}
	s.fail(msg, err)
}

// StreamEnded reports that the stream reader returned. A stream that ends
// while the session still waits for frames is a failure. Once the result
// fetch is under way the stream is no longer needed.
func (s *Session) StreamEnded(err error) {
	if s.State != StateProcessing || s.fetchRequested {
		return
	}
	if err != nil {
		s.Fail(StageStream, err)
		return
	}
	s.fail(MsgStreamEnded, errors.New(MsgStreamEnded))
}

// Reset returns to the upload state and forgets everything about the
// current attempt.
func (s *Session) Reset() {
	gen := s.Generation
	*s = Session{State: StateUpload, Generation: gen + 1}
}

// FileName is the selected file's base name, or "Unknown file".
func (s *Session) FileName() string {
	if s.SelectedFile == nil {
		return "Unknown file"
	}
	return s.SelectedFile.Name()
}

func (s *Session) fail(msg string, cause error) {
	s.State = StateError
	s.Err = msg
	s.Cause = cause
}
