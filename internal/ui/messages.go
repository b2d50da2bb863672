// Package ui is the Bubble Tea terminal interface for waterlens.
//
// The App never performs I/O itself. Requests go through the functions in
// AppConfig, which return commands; their results come back as the messages
// below.
package ui

import (
	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/intake"
)

// FileChecked is sent when a path typed by the user has been opened and
// validated. Err is an *intake.ValidationError for rejected files.
type FileChecked struct {
	File intake.File
	Err  error
}

// UploadFinished is sent when the upload request returns.
type UploadFinished struct {
	Resp api.UploadResponse
	Err  error
}

// ResultFetched is sent when the finished report has been retrieved.
type ResultFetched struct {
	Result api.AnalysisResult
	Err    error
}

// PreviewFetched is sent when the markdown preview has been retrieved.
type PreviewFetched struct {
	Preview api.AnalysisPreview
	Err     error
}

// DownloadFinished is sent when the PDF report has been saved.
type DownloadFinished struct {
	Path  string
	Bytes int64
	Err   error
}

// sessionMsg tags a result with the session generation that requested it.
// Results from an abandoned generation are dropped.
type sessionMsg struct {
	gen uint64
	msg any
}

// streamEventMsg carries one event from the live stream. ch is re-armed
// until the Done event.
type streamEventMsg struct {
	gen uint64
	ev  api.StreamEvent
	ch  <-chan api.StreamEvent
}

// streamClosedMsg reports that a stream channel closed without a Done
// event, which only happens after cancellation.
type streamClosedMsg struct {
	gen uint64
}

// tickMsg drives the elapsed-time display while processing.
type tickMsg struct {
	gen uint64
}
