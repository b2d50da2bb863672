package e2e

import (
	"bytes"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/abelbrown/waterlens/internal/mockapi"
)

// buildWaterlens builds the TUI binary into a temp dir.
func buildWaterlens(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "waterlens")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// test/e2e is two levels below the module root
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/waterlens")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

// startMock serves sc on a local port until the test ends.
func startMock(t *testing.T, sc mockapi.Scenario) string {
	t.Helper()
	srv := mockapi.New(mockapi.WithScenario(sc))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return ts.URL
}

// writeFixturePDF writes a small file that sniffs as a PDF.
func writeFixturePDF(dir string) (string, error) {
	data := bytes.Repeat([]byte("x"), 64<<10)
	copy(data, "%PDF-1.4\n")
	path := filepath.Join(dir, "water.pdf")
	return path, os.WriteFile(path, data, 0o644)
}

// dumpLogs prints the waterlens log files to the test output.
func dumpLogs(t *testing.T, dataDir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dataDir, "logs", "*.log"))
	for _, m := range matches {
		if logs, err := os.ReadFile(m); err == nil {
			t.Logf("%s:\n%s", filepath.Base(m), logs)
		}
	}
}

// stepDelay keeps frames slow enough to see but fast enough for CI.
const stepDelay = 50 * time.Millisecond
