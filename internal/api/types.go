package api

import (
	"github.com/abelbrown/waterlens/internal/workflow"
)

// UploadResponse is returned once per upload.
type UploadResponse struct {
	Success    bool   `json:"success"`
	AnalysisID string `json:"analysisId"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
}

// AnalysisStatus is the polled view of an analysis.
type AnalysisStatus struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"` // uploading, processing, completed, error
	Progress      float64    `json:"progress"`
	Message       string     `json:"message"`
	StartTime     Timestamp  `json:"startTime"`
	CompletedTime *Timestamp `json:"completedTime,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Terminal reports whether the analysis has stopped changing.
func (s AnalysisStatus) Terminal() bool {
	return s.Status == "completed" || s.Status == "error"
}

// AnalysisResult is the finished report, fetched once per analysis.
type AnalysisResult struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"originalFilename"`
	AnalysisMarkdown string    `json:"analysisMarkdown"`
	AnalysisDate     Timestamp `json:"analysisDate"`
	ProcessingTime   float64   `json:"processingTime"` // seconds
	PDFURL           string    `json:"pdfUrl,omitempty"`
	PreviewURL       string    `json:"previewUrl,omitempty"`
}

// PreviewMetadata describes the report shown by a preview.
type PreviewMetadata struct {
	OriginalFilename string  `json:"originalFilename"`
	AnalysisDate     string  `json:"analysisDate"`
	ProcessingTime   float64 `json:"processingTime"`
}

// AnalysisPreview is the markdown preview of a finished report.
type AnalysisPreview struct {
	ID       string          `json:"id"`
	Markdown string          `json:"markdown"`
	Metadata PreviewMetadata `json:"metadata"`
}

// Health is the service health probe response.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

// StreamStats summarizes one stream read loop.
type StreamStats struct {
	Frames    int // updates delivered to the callback
	Malformed int // frames that failed to decode and were skipped
	Bytes     int64
	Last      *workflow.Update
}

// StreamEvent is one item on a Subscribe channel. Exactly one of Update or
// Done is meaningful: the final event has Done set, carries the stream's
// terminal error (nil on clean EOF) and its stats.
type StreamEvent struct {
	Update workflow.Update
	Done   bool
	Err    error
	Stats  StreamStats
}
