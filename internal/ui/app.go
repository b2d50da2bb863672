package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/waterlens/internal/analysis"
	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/otel"
)

// AppConfig holds the functions the App uses to reach the outside world.
// Any of them may be nil; the matching action is then a no-op.
type AppConfig struct {
	// CheckFile opens and validates a local path. Returns FileChecked.
	CheckFile func(path string) tea.Cmd
	// Upload sends a validated file. Returns UploadFinished.
	Upload func(f intake.File) tea.Cmd
	// Subscribe opens the progress stream. The channel must close once ctx
	// is cancelled.
	Subscribe func(ctx context.Context, id string) <-chan api.StreamEvent
	// FetchResult retrieves the report. Returns ResultFetched.
	FetchResult func(id string) tea.Cmd
	// FetchPreview retrieves the markdown preview. Returns PreviewFetched.
	FetchPreview func(id string) tea.Cmd
	// Download saves the PDF report. Returns DownloadFinished.
	Download func(id string) tea.Cmd

	Events *otel.Logger
	Ring   *otel.RingBuffer
	Now    func() time.Time
}

// App is the root Bubble Tea model.
// IMPORTANT: App holds no clients. All I/O goes through AppConfig.
type App struct {
	cfg     AppConfig
	session *analysis.Session

	input    textinput.Model
	progress progress.Model
	spinner  spinner.Model
	report   viewport.Model

	// notice is the outcome of the last preview or download.
	notice    string
	noticeErr bool
	busy      bool

	started       time.Time
	malformedBase int
	malformed     int
	showDebug     bool

	width  int
	height int
	ready  bool

	ctx          context.Context
	cancel       context.CancelFunc
	streamCancel context.CancelFunc
}

// NewApp creates an App in the upload state.
func NewApp(cfg AppConfig) App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	in := textinput.New()
	in.Placeholder = "/path/to/water-test.pdf"
	in.Prompt = "PDF file: "
	in.CharLimit = 4096
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StepActiveStyle

	ctx, cancel := context.WithCancel(context.Background())

	return App{
		cfg:      cfg,
		session:  analysis.NewSession(),
		input:    in,
		progress: progress.New(progress.WithDefaultGradient()),
		spinner:  s,
		report:   viewport.New(80, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.spinner.Tick)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled("ui") {
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
	}

	prev := a.session.State
	next, cmd := a.update(msg)
	if cur := next.session.State; cur != prev {
		next.stateChanged(prev, cur)
	}
	return next, cmd
}

func (a App) update(msg tea.Msg) (App, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.resize()
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sessionMsg:
		if msg.gen != a.session.Generation {
			logging.Debug("dropping stale result", "type", fmt.Sprintf("%T", msg.msg), "gen", msg.gen)
			return a, nil
		}
		return a.handleResult(msg.msg)

	case streamEventMsg:
		if msg.gen != a.session.Generation {
			return a, nil
		}
		return a.handleStreamEvent(msg)

	case streamClosedMsg:
		return a, nil

	case tickMsg:
		if msg.gen != a.session.Generation || a.session.State != analysis.StateProcessing {
			return a, nil
		}
		return a, a.tick()
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (App, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		a.shutdown()
		return a, tea.Quit
	}

	// While typing a path every key belongs to the input.
	if a.session.State == analysis.StateUpload && a.input.Focused() {
		switch {
		case key.Matches(msg, keys.Enter):
			path := strings.TrimSpace(a.input.Value())
			if path == "" || a.cfg.CheckFile == nil {
				return a, nil
			}
			return a, tag(a.session.Generation, a.cfg.CheckFile(path))
		case msg.Type == tea.KeyEsc && a.session.SelectedFile != nil:
			a.input.Blur()
			return a, nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		a.shutdown()
		return a, tea.Quit
	case key.Matches(msg, keys.Debug):
		a.showDebug = !a.showDebug
		return a, nil
	}

	switch a.session.State {
	case analysis.StateUpload:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Start):
			eff := a.session.Start()
			if eff == analysis.EffectNone {
				return a, nil
			}
			a.started = a.cfg.Now()
			return a, tea.Batch(a.run(eff), a.tick(), a.spinner.Tick)
		case key.Matches(msg, keys.Remove):
			a.session.ClearFile()
			a.input.SetValue("")
			return a, a.input.Focus()
		case key.Matches(msg, keys.Edit):
			return a, a.input.Focus()
		}

	case analysis.StateCompleted:
		id := a.session.AnalysisID
		switch {
		case key.Matches(msg, keys.Download):
			if a.busy || a.cfg.Download == nil {
				return a, nil
			}
			a.busy = true
			a.notice, a.noticeErr = "Downloading PDF...", false
			return a, tag(a.session.Generation, a.cfg.Download(id))
		case key.Matches(msg, keys.Preview):
			if a.busy || a.cfg.FetchPreview == nil {
				return a, nil
			}
			a.busy = true
			a.notice, a.noticeErr = "Loading preview...", false
			return a, tag(a.session.Generation, a.cfg.FetchPreview(id))
		case key.Matches(msg, keys.New):
			return a, a.reset()
		}
		var cmd tea.Cmd
		a.report, cmd = a.report.Update(msg)
		return a, cmd

	case analysis.StateError:
		if key.Matches(msg, keys.Retry) || key.Matches(msg, keys.New) {
			return a, a.reset()
		}
	}

	return a, nil
}

// handleResult applies the outcome of a request made for the current
// session generation.
func (a App) handleResult(msg any) (App, tea.Cmd) {
	switch msg := msg.(type) {
	case FileChecked:
		if msg.Err != nil {
			var verr *intake.ValidationError
			if !errors.As(msg.Err, &verr) {
				verr = &intake.ValidationError{Path: msg.File.Path, Message: msg.Err.Error()}
			}
			a.session.Reject(verr)
			a.cfg.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindValidationFail, Comp: "ui", Msg: verr.Message})
			return a, nil
		}
		a.session.SelectFile(msg.File)
		a.input.Blur()
		return a, nil

	case UploadFinished:
		if msg.Err != nil {
			a.session.Fail(analysis.StageUpload, msg.Err)
			return a, nil
		}
		return a, a.run(a.session.UploadSucceeded(msg.Resp))

	case ResultFetched:
		if msg.Err != nil {
			logging.Error("result fetch failed", "analysis", a.session.AnalysisID, "err", msg.Err)
			a.session.Fail(analysis.StageResult, msg.Err)
			a.stopStream()
			return a, nil
		}
		a.session.ResultFetched(msg.Result)
		a.stopStream()
		a.report.SetContent(msg.Result.AnalysisMarkdown)
		a.report.GotoTop()
		return a, nil

	case PreviewFetched:
		a.busy = false
		if msg.Err != nil {
			a.notice, a.noticeErr = "Failed to load preview: "+msg.Err.Error(), true
			return a, nil
		}
		a.report.SetContent(msg.Preview.Markdown)
		a.report.GotoTop()
		a.notice, a.noticeErr = "Preview loaded", false
		return a, nil

	case DownloadFinished:
		a.busy = false
		if msg.Err != nil {
			a.notice, a.noticeErr = "Failed to download PDF: "+msg.Err.Error(), true
			return a, nil
		}
		a.notice, a.noticeErr = fmt.Sprintf("Saved %s (%s)", msg.Path, analysis.FormatSize(msg.Bytes)), false
		return a, nil
	}
	return a, nil
}

func (a App) handleStreamEvent(msg streamEventMsg) (App, tea.Cmd) {
	if msg.ev.Done {
		a.malformed = msg.ev.Stats.Malformed
		a.session.StreamEnded(msg.ev.Err)
		a.stopStream()
		return a, nil
	}

	eff := a.session.Apply(msg.ev.Update)
	if a.cfg.Ring != nil {
		a.malformed = a.cfg.Ring.Total(otel.KindStreamMalformed) - a.malformedBase
	}
	if a.session.State == analysis.StateError {
		a.stopStream()
		return a, nil
	}
	return a, tea.Batch(a.run(eff), listen(msg.gen, msg.ch))
}

// run performs the I/O a session transition asked for.
func (a *App) run(eff analysis.Effect) tea.Cmd {
	gen := a.session.Generation
	switch eff {
	case analysis.EffectUpload:
		if a.cfg.Upload == nil || a.session.SelectedFile == nil {
			return nil
		}
		return tag(gen, a.cfg.Upload(*a.session.SelectedFile))
	case analysis.EffectStream:
		return a.startStream(a.session.AnalysisID)
	case analysis.EffectFetchResult:
		if a.cfg.FetchResult == nil {
			return nil
		}
		return tag(gen, a.cfg.FetchResult(a.session.AnalysisID))
	}
	return nil
}

func (a *App) startStream(id string) tea.Cmd {
	a.stopStream()
	if a.cfg.Subscribe == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.streamCancel = cancel
	a.malformed = 0
	if a.cfg.Ring != nil {
		a.malformedBase = a.cfg.Ring.Total(otel.KindStreamMalformed)
	}
	return listen(a.session.Generation, a.cfg.Subscribe(ctx, id))
}

func (a *App) stopStream() {
	if a.streamCancel != nil {
		a.streamCancel()
		a.streamCancel = nil
	}
}

// reset abandons the current attempt and returns to the upload view.
func (a *App) reset() tea.Cmd {
	a.stopStream()
	a.session.Reset()
	a.notice, a.noticeErr, a.busy = "", false, false
	a.malformed = 0
	a.report.SetContent("")
	a.input.SetValue("")
	return a.input.Focus()
}

func (a *App) shutdown() {
	a.stopStream()
	a.cancel()
}

func (a *App) resize() {
	a.input.Width = max(a.width-16, 10)
	a.progress.Width = min(max(a.width-8, 10), 60)
	a.report.Width = max(a.width-8, 10)
	// title, metadata, notice and status bar
	a.report.Height = max(a.height-10, 3)
}

func (a App) stateChanged(from, to analysis.State) {
	logging.Info("state changed", "from", from, "to", to, "analysis", a.session.AnalysisID)
	a.cfg.Events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindStateChange,
		Comp:       "ui",
		AnalysisID: a.session.AnalysisID,
		Status:     to.String(),
		Msg:        a.session.Err,
	})
}

func (a App) tick() tea.Cmd {
	gen := a.session.Generation
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// Session exposes the state machine (for testing).
func (a App) Session() *analysis.Session {
	return a.session
}

// Malformed returns the malformed frames skipped on the current stream.
func (a App) Malformed() int {
	return a.malformed
}

// tag wraps cmd so its result is delivered as a sessionMsg for gen.
func tag(gen uint64, cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		return sessionMsg{gen: gen, msg: cmd()}
	}
}

// listen waits for the next stream event. It is re-armed after every
// event until the stream reports Done.
func listen(gen uint64, ch <-chan api.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{gen: gen}
		}
		return streamEventMsg{gen: gen, ev: ev, ch: ch}
	}
}
