// Command waterlens is the terminal client for the water-test analysis
// service: pick a PDF, watch the analysis progress live, then read and
// download the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/config"
	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/otel"
	"github.com/abelbrown/waterlens/internal/ui"
)

func main() {
	envFile := flag.String("env", "", "env file to load (default .env)")
	apiURL := flag.String("api", "", "analysis API base URL (overrides "+config.EnvAPIURL+")")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if err := run(*envFile, *apiURL, *verbose, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "waterlens: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile, apiURL string, verbose bool, initialPath string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	cfg.Verbose = cfg.Verbose || verbose

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if err := logging.Init(cfg.LogDir(), cfg.Verbose); err != nil {
		return err
	}
	defer logging.Close()

	// Diagnostic event log. Falls back to a null logger so the ring buffer
	// still feeds the diagnostics overlay.
	var events *otel.Logger
	if f, err := otel.OpenFile(cfg.EventLogPath()); err != nil {
		logging.Warn("event log disabled", "err", err)
		events = otel.NewNullLogger()
	} else {
		defer f.Close()
		events = otel.NewLogger(f)
	}
	otel.SetTrace(cfg.Trace)
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)
	defer events.Close()
	events.Info(otel.KindStartup, "ui", cfg.APIURL)

	client := api.NewClient(cfg.APIURL, api.WithTimeout(cfg.Timeout), api.WithEventLog(events))
	logging.Info("using analysis service", "url", client.BaseURL())

	// Request context for one-shot calls; cancelled on exit.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := ui.NewApp(ui.AppConfig{
		CheckFile: func(path string) tea.Cmd {
			return func() tea.Msg {
				f, err := intake.OpenValid(path)
				if err != nil {
					logging.Warn("file rejected", "path", path, "err", err)
				}
				return ui.FileChecked{File: f, Err: err}
			}
		},
		Upload: func(f intake.File) tea.Cmd {
			return func() tea.Msg {
				resp, err := client.UploadFile(ctx, f)
				return ui.UploadFinished{Resp: resp, Err: err}
			}
		},
		Subscribe: client.Subscribe,
		FetchResult: func(id string) tea.Cmd {
			return func() tea.Msg {
				res, err := client.Result(ctx, id)
				return ui.ResultFetched{Result: res, Err: err}
			}
		},
		FetchPreview: func(id string) tea.Cmd {
			return func() tea.Msg {
				p, err := client.Preview(ctx, id)
				return ui.PreviewFetched{Preview: p, Err: err}
			}
		},
		Download: func(id string) tea.Cmd {
			return func() tea.Msg {
				path := filepath.Join(cfg.DownloadDir, api.ReportFilename(time.Now()))
				n, err := client.DownloadPDFTo(ctx, id, path)
				return ui.DownloadFinished{Path: path, Bytes: n, Err: err}
			}
		},
		Events: events,
		Ring:   ring,
	})

	program := tea.NewProgram(app, tea.WithAltScreen())

	// A path given on the command line is checked as if it had been typed.
	if initialPath != "" {
		go func() {
			program.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(initialPath)})
			program.Send(tea.KeyMsg{Type: tea.KeyEnter})
		}()
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	events.Info(otel.KindShutdown, "ui", "")
	return nil
}
