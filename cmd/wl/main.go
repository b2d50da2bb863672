// Command wl is the command-line client for the water-test analysis service.
//
// Usage:
//
//	wl                          Show help
//	wl health                   Service health
//	wl upload <file>            Upload a PDF, print the analysis id
//	wl status <id> [-watch]     Analysis status, optionally until it finishes
//	wl stream <id>              Follow the live progress stream
//	wl result <id>              Print the finished report
//	wl preview <id>             Print the report preview
//	wl download <id> [-o path]  Save the PDF report
//	wl run <file>               Upload, follow and print the report
//	wl events [-f]              Diagnostic event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `wl - water test analysis CLI

Usage:
  wl <command> [flags] [args]

Commands:
  health      Check that the analysis service is up
  upload      Upload a PDF and print the analysis id
  status      Show analysis status (-watch polls until finished)
  stream      Follow the live progress stream of an analysis
  result      Print the finished report markdown
  preview     Print the report preview
  download    Save the PDF report (-o sets the path)
  run         Validate, upload, follow and print the report in one go
  events      Diagnostic event log viewer (written by waterlens)

Environment:
  WATERLENS_API_URL       Analysis API base URL (default http://localhost:2104)
  WATERLENS_TIMEOUT       Request timeout (default 60s)
  WATERLENS_VERBOSE       true enables debug logging on stderr
  WATERLENS_DOWNLOAD_DIR  Where download saves reports (default .)

Run 'wl <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name so flag sets see only their own arguments.
	os.Args = os.Args[1:]

	var err error
	switch cmd {
	case "health":
		err = runHealth()
	case "upload":
		err = runUpload()
	case "status":
		err = runStatus()
	case "stream":
		err = runStream()
	case "result":
		err = runResult()
	case "preview":
		err = runPreview()
	case "download":
		err = runDownload()
	case "run":
		err = runRun()
	case "events":
		err = runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "wl: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "wl: %v\n", err)
		os.Exit(1)
	}
}
