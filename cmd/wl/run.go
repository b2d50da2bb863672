package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/waterlens/internal/analysis"
	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/workflow"
)

var (
	doneMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Render("✓")
	activeMark = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Render("›")
	failedMark = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
)

func runRun() error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	download := fs.Bool("download", false, "Also save the PDF report to the download dir")
	path, err := oneArg(fs, "file")
	if err != nil {
		return err
	}

	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	s, malformed, err := runAnalysis(ctx, client, path, os.Stdout)
	if malformed > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d malformed frames skipped\n", malformed)
	}
	if err != nil {
		return err
	}

	fmt.Println()
	printResult(os.Stdout, *s.Result)

	if *download {
		out := filepath.Join(cfg.DownloadDir, api.ReportFilename(time.Now()))
		n, err := client.DownloadPDFTo(ctx, s.AnalysisID, out)
		if err != nil {
			return err
		}
		fmt.Printf("saved %s (%s)\n", out, analysis.FormatSize(n))
	}
	return nil
}

// runAnalysis drives one Session from file selection to a final state,
// printing each progress frame to out. It returns the session, the number of
// malformed frames skipped and an error for any state other than completed.
func runAnalysis(ctx context.Context, client *api.Client, path string, out io.Writer) (*analysis.Session, int, error) {
	s := analysis.NewSession()

	f, err := intake.OpenValid(path)
	if err != nil {
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			s.Reject(verr)
		}
		return s, 0, err
	}
	s.SelectFile(f)
	fmt.Fprintf(out, "%s (%s)\n", f.Name(), analysis.FormatSize(f.Size))

	var malformed int
	eff := s.Start()
	for eff != analysis.EffectNone {
		switch eff {
		case analysis.EffectUpload:
			resp, err := client.UploadFile(ctx, f)
			if err != nil {
				s.Fail(analysis.StageUpload, err)
				eff = analysis.EffectNone
				continue
			}
			eff = s.UploadSucceeded(resp)
			if s.AnalysisID != "" {
				fmt.Fprintf(out, "analysis %s\n", s.AnalysisID)
			}

		case analysis.EffectStream:
			eff, malformed, err = follow(ctx, client, s, out)
			if err != nil {
				return s, malformed, err
			}

		case analysis.EffectFetchResult:
			res, err := client.Result(ctx, s.AnalysisID)
			if err != nil {
				logging.Error("result fetch failed", "analysis", s.AnalysisID, "err", err)
				s.Fail(analysis.StageResult, err)
			} else {
				s.ResultFetched(res)
			}
			eff = analysis.EffectNone
		}
	}

	if s.State != analysis.StateCompleted {
		return s, malformed, sessionError(s)
	}
	return s, malformed, nil
}

// follow reads the stream in one goroutine and applies updates in another.
// It stops the stream once the session asks for the result or fails.
func follow(ctx context.Context, client *api.Client, s *analysis.Session, out io.Writer) (analysis.Effect, int, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(streamCtx)
	updates := make(chan workflow.Update)

	var (
		stats     api.StreamStats
		streamErr error
	)
	g.Go(func() error {
		defer close(updates)
		stats, streamErr = client.StreamWorkflow(gctx, s.AnalysisID, func(u workflow.Update) {
			select {
			case updates <- u:
			case <-gctx.Done():
			}
		})
		return nil
	})

	next := analysis.EffectNone
	g.Go(func() error {
		for u := range updates {
			eff := s.Apply(u)
			printUpdate(out, u)
			if eff == analysis.EffectFetchResult || s.State == analysis.StateError {
				next = eff
				cancel()
				// Drain so the reader can observe cancellation.
				for range updates {
				}
				return nil
			}
		}
		// An interrupt is not a stream failure.
		if err := ctx.Err(); err != nil {
			return err
		}
		s.StreamEnded(streamErr)
		return nil
	})

	if err := g.Wait(); err != nil {
		return analysis.EffectNone, stats.Malformed, err
	}
	return next, stats.Malformed, nil
}

func sessionError(s *analysis.Session) error {
	var werr *analysis.WorkflowError
	if errors.As(s.Cause, &werr) {
		return werr
	}
	switch {
	case s.Cause != nil && s.Cause.Error() == s.Err:
		return s.Cause
	case s.Cause != nil:
		return fmt.Errorf("%s: %w", s.Err, s.Cause)
	case s.Err == "":
		return errors.New("unknown error during analysis")
	}
	return errors.New(s.Err)
}

func printUpdate(w io.Writer, u workflow.Update) {
	mark := activeMark
	switch {
	case u.Failed():
		mark = failedMark
	case u.Status == workflow.StatusCompleted:
		mark = doneMark
	}
	label := string(u.Step)
	if i := u.Step.Index(); i >= 0 {
		label = analysis.StepInfos[i].Label
	}
	line := fmt.Sprintf("%s %3.0f%%  %-18s", mark, u.ClampedProgress()*100, label)
	if u.Message != "" {
		line += "  " + u.Message
	}
	if u.ElapsedTime > 0 {
		line += "  (" + analysis.FormatElapsed(u.ElapsedTime) + ")"
	}
	fmt.Fprintln(w, line)
}
