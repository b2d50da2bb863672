package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/waterlens/internal/analysis"
	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/workflow"
)

// mockBackend records which AppConfig functions were called.
type mockBackend struct {
	checked    []string
	uploads    []string
	subscribed []string
	fetched    []string
	previews   []string
	downloads  []string
	streamCtx  context.Context
	ch         chan api.StreamEvent
}

func (m *mockBackend) config() AppConfig {
	m.ch = make(chan api.StreamEvent)
	return AppConfig{
		CheckFile: func(path string) tea.Cmd {
			m.checked = append(m.checked, path)
			return func() tea.Msg { return FileChecked{File: testFile(path)} }
		},
		Upload: func(f intake.File) tea.Cmd {
			m.uploads = append(m.uploads, f.Path)
			return func() tea.Msg {
				return UploadFinished{Resp: api.UploadResponse{Success: true, AnalysisID: "analysis_0123456789ab"}}
			}
		},
		Subscribe: func(ctx context.Context, id string) <-chan api.StreamEvent {
			m.subscribed = append(m.subscribed, id)
			m.streamCtx = ctx
			return m.ch
		},
		FetchResult: func(id string) tea.Cmd {
			m.fetched = append(m.fetched, id)
			return func() tea.Msg { return ResultFetched{Result: testResult()} }
		},
		FetchPreview: func(id string) tea.Cmd {
			m.previews = append(m.previews, id)
			return func() tea.Msg { return PreviewFetched{} }
		},
		Download: func(id string) tea.Cmd {
			m.downloads = append(m.downloads, id)
			return func() tea.Msg { return DownloadFinished{} }
		},
		Now: func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func testFile(path string) intake.File {
	return intake.File{Path: path, Size: 2 << 20, MIMEType: intake.PDFType}
}

func testResult() api.AnalysisResult {
	return api.AnalysisResult{
		ID:               "analysis_0123456789ab",
		OriginalFilename: "water.pdf",
		AnalysisMarkdown: "# Water Test Analysis\n\nAll parameters within limits.",
		AnalysisDate:     api.Timestamp{Time: time.Date(2026, 5, 1, 12, 1, 15, 0, time.UTC)},
		ProcessingTime:   75,
	}
}

func resized(app App) App {
	model, _ := app.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return model.(App)
}

func send(t *testing.T, app App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	return model.(App), cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var enterKey = tea.KeyMsg{Type: tea.KeyEnter}

// current wraps msg in the App's current generation.
func current(app App, msg any) sessionMsg {
	return sessionMsg{gen: app.session.Generation, msg: msg}
}

func frame(app App, ch chan api.StreamEvent, u workflow.Update) streamEventMsg {
	return streamEventMsg{gen: app.session.Generation, ev: api.StreamEvent{Update: u}, ch: ch}
}

// selectFile types a path and delivers the validation result.
func selectFile(t *testing.T, app App) App {
	t.Helper()
	app.input.SetValue("/tmp/water.pdf")
	app, _ = send(t, app, enterKey)
	app, _ = send(t, app, current(app, FileChecked{File: testFile("/tmp/water.pdf")}))
	return app
}

// startProcessing selects a file, starts it and accepts the upload.
func startProcessing(t *testing.T, m *mockBackend) App {
	t.Helper()
	app := resized(NewApp(m.config()))
	app = selectFile(t, app)
	app, _ = send(t, app, enterKey)
	app, _ = send(t, app, current(app, UploadFinished{Resp: api.UploadResponse{Success: true, AnalysisID: "analysis_0123456789ab"}}))
	return app
}

func TestAppSelectFile(t *testing.T) {
	m := &mockBackend{}
	app := resized(NewApp(m.config()))

	app.input.SetValue("  /tmp/water.pdf ")
	app, cmd := send(t, app, enterKey)
	if cmd == nil {
		t.Fatal("enter should return a check command")
	}
	if len(m.checked) != 1 || m.checked[0] != "/tmp/water.pdf" {
		t.Fatalf("CheckFile calls = %v", m.checked)
	}

	app, _ = send(t, app, current(app, FileChecked{File: testFile("/tmp/water.pdf")}))
	if app.session.SelectedFile == nil {
		t.Fatal("file should be selected")
	}
	if app.input.Focused() {
		t.Error("input should blur once a file is selected")
	}
	if view := app.View(); !strings.Contains(view, "water.pdf (2 MB)") {
		t.Errorf("view should show the selected file, got:\n%s", view)
	}
}

func TestAppEmptyPathIgnored(t *testing.T) {
	m := &mockBackend{}
	app := resized(NewApp(m.config()))

	_, cmd := send(t, app, enterKey)
	if cmd != nil || len(m.checked) != 0 {
		t.Error("enter with an empty path should do nothing")
	}
}

func TestAppRejectedFile(t *testing.T) {
	m := &mockBackend{}
	app := resized(NewApp(m.config()))

	verr := &intake.ValidationError{Path: "notes.txt", Message: "Only PDF files are allowed"}
	app, _ = send(t, app, current(app, FileChecked{File: intake.File{Path: "notes.txt"}, Err: verr}))

	if app.session.State != analysis.StateUpload {
		t.Errorf("state = %v, want upload", app.session.State)
	}
	if app.session.SelectedFile != nil {
		t.Error("rejected file should not be selected")
	}
	if view := app.View(); !strings.Contains(view, "Only PDF files are allowed") {
		t.Errorf("view should show the rejection, got:\n%s", view)
	}

	// Untyped errors are wrapped as validation failures.
	app, _ = send(t, app, current(app, FileChecked{File: intake.File{Path: "gone.pdf"}, Err: errors.New("no such file")}))
	if app.session.Err != "no such file" {
		t.Errorf("Err = %q, want %q", app.session.Err, "no such file")
	}
}

func TestAppStartUploads(t *testing.T) {
	m := &mockBackend{}
	app := selectFile(t, resized(NewApp(m.config())))
	gen := app.session.Generation

	app, cmd := send(t, app, enterKey)
	if app.session.State != analysis.StateProcessing {
		t.Fatalf("state = %v, want processing", app.session.State)
	}
	if app.session.Generation != gen+1 {
		t.Error("start should bump the generation")
	}
	if cmd == nil || len(m.uploads) != 1 || m.uploads[0] != "/tmp/water.pdf" {
		t.Errorf("Upload calls = %v", m.uploads)
	}
	if view := app.View(); !strings.Contains(view, "Analyzing test results") {
		t.Errorf("view should show progress, got:\n%s", view)
	}
}

func TestAppStartKeyA(t *testing.T) {
	m := &mockBackend{}
	app := selectFile(t, resized(NewApp(m.config())))

	app, _ = send(t, app, runeKey('a'))
	if app.session.State != analysis.StateProcessing {
		t.Errorf("state = %v, want processing", app.session.State)
	}
}

func TestAppRemoveFile(t *testing.T) {
	m := &mockBackend{}
	app := selectFile(t, resized(NewApp(m.config())))

	app, _ = send(t, app, runeKey('x'))
	if app.session.SelectedFile != nil {
		t.Error("x should clear the selected file")
	}
	if !app.input.Focused() || app.input.Value() != "" {
		t.Error("x should return to an empty focused input")
	}
}

func TestAppFullFlow(t *testing.T) {
	m := &mockBackend{}
	app := startProcessing(t, m)

	if len(m.subscribed) != 1 || m.subscribed[0] != "analysis_0123456789ab" {
		t.Fatalf("Subscribe calls = %v", m.subscribed)
	}

	app, cmd := send(t, app, frame(app, m.ch, workflow.Update{Step: workflow.StepAnalysis, Status: workflow.StatusProcessing, Message: "Checking nitrate levels", Progress: 60}))
	if cmd == nil {
		t.Fatal("stream listener should be re-armed")
	}
	view := app.View()
	if !strings.Contains(view, "Checking nitrate levels") {
		t.Errorf("view should show the active message, got:\n%s", view)
	}
	if !strings.Contains(view, "AI analysis") {
		t.Errorf("view should list steps, got:\n%s", view)
	}

	done := workflow.Update{Step: workflow.StepComplete, Status: workflow.StatusCompleted, Progress: 100}
	app, _ = send(t, app, frame(app, m.ch, done))
	app, _ = send(t, app, frame(app, m.ch, done))
	if len(m.fetched) != 1 {
		t.Fatalf("FetchResult calls = %d, want 1", len(m.fetched))
	}

	app, _ = send(t, app, current(app, ResultFetched{Result: testResult()}))
	if app.session.State != analysis.StateCompleted {
		t.Fatalf("state = %v, want completed", app.session.State)
	}
	if m.streamCtx.Err() == nil {
		t.Error("stream should be cancelled once the result arrives")
	}

	view = app.View()
	for _, want := range []string{"Analysis complete", "water.pdf", "1m 15s", "All parameters within limits."} {
		if !strings.Contains(view, want) {
			t.Errorf("completed view should contain %q, got:\n%s", want, view)
		}
	}
}

func TestAppDropsStaleMessages(t *testing.T) {
	m := &mockBackend{}
	app := selectFile(t, resized(NewApp(m.config())))
	app, _ = send(t, app, enterKey)
	stale := app.session.Generation

	app, _ = send(t, app, current(app, UploadFinished{Err: errors.New("HTTP 500: disk full")}))
	app, _ = send(t, app, runeKey('r'))
	if app.session.State != analysis.StateUpload {
		t.Fatalf("state = %v, want upload after retry", app.session.State)
	}

	app, _ = send(t, app, sessionMsg{gen: stale, msg: UploadFinished{Resp: api.UploadResponse{Success: true, AnalysisID: "analysis_old"}}})
	if app.session.AnalysisID != "" || len(m.subscribed) != 0 {
		t.Error("result from an abandoned attempt should be dropped")
	}

	app, cmd := send(t, app, streamEventMsg{gen: stale, ev: api.StreamEvent{Update: workflow.Update{Step: workflow.StepParsing}}, ch: m.ch})
	if cmd != nil || app.session.Workflow != nil {
		t.Error("stale stream event should be dropped without re-arming")
	}
}

func TestAppUploadFailure(t *testing.T) {
	m := &mockBackend{}
	app := selectFile(t, resized(NewApp(m.config())))
	app, _ = send(t, app, enterKey)

	app, _ = send(t, app, current(app, UploadFinished{Err: errors.New("HTTP 500: disk full")}))
	if app.session.State != analysis.StateError {
		t.Fatalf("state = %v, want error", app.session.State)
	}
	if view := app.View(); !strings.Contains(view, "HTTP 500: disk full") || !strings.Contains(view, "r:try again") {
		t.Errorf("error view should show the cause and retry key, got:\n%s", view)
	}
}

func TestAppWorkflowError(t *testing.T) {
	m := &mockBackend{}
	app := startProcessing(t, m)

	app, cmd := send(t, app, frame(app, m.ch, workflow.Update{Step: workflow.StepParsing, Status: workflow.StatusError, Message: "Unreadable table on page 2"}))
	if cmd != nil {
		t.Error("listener should not be re-armed after a failure")
	}
	if app.session.State != analysis.StateError {
		t.Fatalf("state = %v, want error", app.session.State)
	}
	if m.streamCtx.Err() == nil {
		t.Error("stream should be cancelled on failure")
	}
	if view := app.View(); !strings.Contains(view, "Unreadable table on page 2") {
		t.Errorf("error view should show the server message, got:\n%s", view)
	}
}

func TestAppStreamEndsEarly(t *testing.T) {
	m := &mockBackend{}
	app := startProcessing(t, m)

	app, _ = send(t, app, frame(app, m.ch, workflow.Update{Step: workflow.StepParsing, Status: workflow.StatusProcessing}))
	app, _ = send(t, app, streamEventMsg{gen: app.session.Generation, ch: m.ch, ev: api.StreamEvent{Done: true, Stats: api.StreamStats{Frames: 1, Malformed: 2}}})

	if app.session.State != analysis.StateError {
		t.Fatalf("state = %v, want error", app.session.State)
	}
	if app.session.Err != analysis.MsgStreamEnded {
		t.Errorf("Err = %q, want %q", app.session.Err, analysis.MsgStreamEnded)
	}
	if app.Malformed() != 2 {
		t.Errorf("Malformed() = %d, want 2", app.Malformed())
	}
	if view := app.View(); !strings.Contains(view, "2 malformed frames skipped") {
		t.Errorf("status bar should report malformed frames, got:\n%s", view)
	}
}

func TestAppDownloadAndPreview(t *testing.T) {
	m := &mockBackend{}
	app := startProcessing(t, m)
	app, _ = send(t, app, frame(app, m.ch, workflow.Update{Step: workflow.StepComplete, Status: workflow.StatusCompleted, Progress: 100}))
	app, _ = send(t, app, current(app, ResultFetched{Result: testResult()}))

	app, cmd := send(t, app, runeKey('d'))
	if cmd == nil || len(m.downloads) != 1 {
		t.Fatalf("Download calls = %v", m.downloads)
	}
	// A second press while busy is ignored.
	app, _ = send(t, app, runeKey('d'))
	if len(m.downloads) != 1 {
		t.Error("download should not start twice")
	}

	app, _ = send(t, app, current(app, DownloadFinished{Err: errors.New("HTTP 404: Not Found")}))
	if app.session.State != analysis.StateCompleted {
		t.Error("download failure should not leave the completed view")
	}
	if view := app.View(); !strings.Contains(view, "Failed to download PDF") {
		t.Errorf("view should show the download failure, got:\n%s", view)
	}

	app, _ = send(t, app, runeKey('d'))
	app, _ = send(t, app, current(app, DownloadFinished{Path: "water_analysis_2026-05-01.pdf", Bytes: 1536}))
	if view := app.View(); !strings.Contains(view, "Saved water_analysis_2026-05-01.pdf (1.5 KB)") {
		t.Errorf("view should show the saved file, got:\n%s", view)
	}

	app, _ = send(t, app, runeKey('p'))
	app, _ = send(t, app, current(app, PreviewFetched{Preview: api.AnalysisPreview{Markdown: "Preview body"}}))
	if len(m.previews) != 1 {
		t.Errorf("FetchPreview calls = %v", m.previews)
	}
	if view := app.View(); !strings.Contains(view, "Preview body") {
		t.Errorf("view should show the preview, got:\n%s", view)
	}

	app, _ = send(t, app, runeKey('n'))
	if app.session.State != analysis.StateUpload || app.session.Result != nil {
		t.Error("n should start over")
	}
}

func TestAppQuit(t *testing.T) {
	m := &mockBackend{}
	app := startProcessing(t, m)

	_, cmd := send(t, app, runeKey('q'))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if m.streamCtx.Err() == nil {
		t.Error("quit should cancel the stream")
	}
}

func TestAppQuitTypesIntoInput(t *testing.T) {
	app := resized(NewApp(AppConfig{}))

	app, _ = send(t, app, runeKey('q'))
	if app.input.Value() != "q" {
		t.Errorf("q should be typed into the focused input, got %q", app.input.Value())
	}
}

func TestAppQuitCtrlC(t *testing.T) {
	app := resized(NewApp(AppConfig{}))

	_, cmd := send(t, app, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestAppWindowSize(t *testing.T) {
	app := NewApp(AppConfig{})
	if app.ready {
		t.Error("app should not be ready before a window size")
	}

	app, _ = send(t, app, tea.WindowSizeMsg{Width: 100, Height: 40})
	if !app.ready || app.width != 100 || app.height != 40 {
		t.Errorf("size = %dx%d ready=%v", app.width, app.height, app.ready)
	}
}

func TestAppViewNotReady(t *testing.T) {
	if view := NewApp(AppConfig{}).View(); view != "Loading..." {
		t.Errorf("View() = %q, want Loading...", view)
	}
}

func TestAppNilConfigIsSafe(t *testing.T) {
	app := resized(NewApp(AppConfig{}))
	app.input.SetValue("/tmp/water.pdf")

	app, cmd := send(t, app, enterKey)
	if cmd != nil {
		t.Error("missing CheckFile should be a no-op")
	}
	if app.session.State != analysis.StateUpload {
		t.Errorf("state = %v, want upload", app.session.State)
	}
}
