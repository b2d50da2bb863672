package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"

	"github.com/abelbrown/waterlens/internal/mockapi"
)

func TestE2E_Analysis(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs the binary")
	}
	binPath := buildWaterlens(t)
	apiURL := startMock(t, mockapi.DefaultScenario(stepDelay))

	work := t.TempDir()
	dataDir := filepath.Join(work, "data")
	pdfPath, err := writeFixturePDF(work)
	if err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cmd := exec.Command(binPath)
	cmd.Dir = work
	cmd.Env = append(os.Environ(),
		"HOME="+work,
		"WATERLENS_API_URL="+apiURL,
		"WATERLENS_DATA_DIR="+dataDir,
		"WATERLENS_DOWNLOAD_DIR="+work,
	)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start pty: %v", err)
	}
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
	}()

	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: 120, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdin(ptmx),
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	t.Log("Waiting for upload view...")
	if _, err := console.ExpectString("Water Test Analysis"); err != nil {
		dumpLogs(t, dataDir)
		t.Fatalf("startup failed: %v\nScreen:\n%s", err, outputBuf.String())
	}

	time.Sleep(300 * time.Millisecond) // let the UI settle
	if _, err := console.Send(pdfPath + "\r"); err != nil {
		t.Fatalf("failed to send path: %v", err)
	}
	if _, err := console.ExpectString("water.pdf (64 KB)"); err != nil {
		t.Fatalf("file not selected: %v\nScreen:\n%s", err, outputBuf.String())
	}

	t.Log("Starting analysis...")
	if _, err := console.Send("\r"); err != nil {
		t.Fatalf("failed to send enter: %v", err)
	}
	if _, err := console.ExpectString("Analysis complete"); err != nil {
		dumpLogs(t, dataDir)
		t.Fatalf("analysis did not complete: %v\nScreen:\n%s", err, outputBuf.String())
	}

	t.Log("Downloading report...")
	if _, err := console.Send("d"); err != nil {
		t.Fatalf("failed to send d: %v", err)
	}
	if _, err := console.ExpectString("Saved "); err != nil {
		t.Fatalf("download notice not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}
	reports, _ := filepath.Glob(filepath.Join(work, "water_analysis_*.pdf"))
	if len(reports) != 1 {
		t.Errorf("expected one downloaded report, found %v", reports)
	}

	if _, err := console.Send("q"); err != nil {
		t.Fatalf("failed to send q: %v", err)
	}
	done := make(chan error)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("process did not exit after 'q'")
	}

	events, err := os.ReadFile(filepath.Join(dataDir, "events.jsonl"))
	if err != nil {
		t.Fatalf("event log missing: %v", err)
	}
	for _, kind := range []string{`"kind":"upload.complete"`, `"kind":"stream.open"`, `"kind":"ui.state"`} {
		if !strings.Contains(string(events), kind) {
			t.Errorf("event log should contain %s", kind)
		}
	}
}
