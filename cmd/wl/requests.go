package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/waterlens/internal/analysis"
	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/workflow"
)

func runHealth() error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	fs.Parse(os.Args[1:])

	_, client, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	h, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s  version %s  at %s\n", h.Status, h.Version, time.Unix(h.Timestamp, 0).Format(time.RFC3339))
	return nil
}

func runUpload() error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	userID := fs.String("user", "", "userId sent with the upload")
	path, err := oneArg(fs, "file")
	if err != nil {
		return err
	}

	_, client, err := setup(api.WithUserID(*userID))
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	f, err := intake.OpenValid(path)
	if err != nil {
		return err
	}
	resp, err := client.UploadFile(ctx, f)
	if err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = analysis.MsgUploadFailed
		}
		return fmt.Errorf("upload rejected: %s", msg)
	}
	fmt.Println(resp.AnalysisID)
	return nil
}

func runStatus() error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	watch := fs.Bool("watch", false, "Poll until the analysis completes or fails")
	interval := fs.Duration("interval", api.DefaultPollInterval, "Polling interval with -watch")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	id, err := oneArg(fs, "id")
	if err != nil {
		return err
	}

	_, client, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	show := func(st api.AnalysisStatus) {
		if *asJSON {
			printJSON(os.Stdout, st)
			return
		}
		printStatus(os.Stdout, st)
	}

	if !*watch {
		st, err := client.Status(ctx, id)
		if err != nil {
			return err
		}
		show(st)
		return nil
	}

	st, err := client.PollStatus(ctx, id, *interval, show)
	if err != nil {
		return err
	}
	if st.Status == "error" {
		return fmt.Errorf("analysis failed: %s", firstNonEmpty(st.Error, st.Message, analysis.MsgAnalysisFailed))
	}
	return nil
}

func runStream() error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print each frame as JSON")
	id, err := oneArg(fs, "id")
	if err != nil {
		return err
	}

	_, client, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	stats, err := client.StreamWorkflow(ctx, id, func(u workflow.Update) {
		if *asJSON {
			printJSON(os.Stdout, u)
			return
		}
		printUpdate(os.Stdout, u)
	})
	if stats.Malformed > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d malformed frames skipped\n", stats.Malformed)
	}
	return err
}

func runResult() error {
	fs := flag.NewFlagSet("result", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print raw JSON")
	id, err := oneArg(fs, "id")
	if err != nil {
		return err
	}

	_, client, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	res, err := client.Result(ctx, id)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(os.Stdout, res)
	}
	printResult(os.Stdout, res)
	return nil
}

func runPreview() error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print raw JSON")
	id, err := oneArg(fs, "id")
	if err != nil {
		return err
	}

	_, client, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	p, err := client.Preview(ctx, id)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(os.Stdout, p)
	}
	fmt.Println(p.Markdown)
	return nil
}

func runDownload() error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	out := fs.String("o", "", "Output path (default <download dir>/water_analysis_<date>.pdf)")
	id, err := oneArg(fs, "id")
	if err != nil {
		return err
	}

	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	path := *out
	if path == "" {
		path = filepath.Join(cfg.DownloadDir, api.ReportFilename(time.Now()))
	}
	n, err := client.DownloadPDFTo(ctx, id, path)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s (%s)\n", path, analysis.FormatSize(n))
	return nil
}

func printStatus(w io.Writer, st api.AnalysisStatus) {
	line := fmt.Sprintf("%-10s %3.0f%%  %s", st.Status, st.Progress, st.Message)
	if st.Error != "" {
		line += "  error: " + st.Error
	}
	fmt.Fprintln(w, line)
}

func printResult(w io.Writer, res api.AnalysisResult) {
	fmt.Fprintf(w, "File: %s\n", res.OriginalFilename)
	if !res.AnalysisDate.IsZero() {
		fmt.Fprintf(w, "Date: %s\n", res.AnalysisDate.Local().Format(time.DateTime))
	}
	fmt.Fprintf(w, "Processing time: %s\n\n", analysis.FormatElapsed(res.ProcessingTime))
	fmt.Fprintln(w, res.AnalysisMarkdown)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
