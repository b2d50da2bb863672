// Command waterlens-mock serves a scripted copy of the analysis API for local
// development and demos.
//
// Usage:
//
//	waterlens-mock                          Default scenario on :2104
//	waterlens-mock -scenario flaky.yaml     Replay frames from a YAML file
//	waterlens-mock -step 2s                 Slow down the default scenario
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/mockapi"
	"github.com/abelbrown/waterlens/internal/otel"
)

func main() {
	addr := flag.String("addr", ":2104", "listen address")
	scenarioPath := flag.String("scenario", "", "YAML scenario file (default: built-in happy path)")
	step := flag.Duration("step", 500*time.Millisecond, "delay between frames of the built-in scenario")
	events := flag.String("events", "", "append JSONL diagnostic events to this file")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	logging.InitWriter(os.Stderr, *verbose)

	if err := run(*addr, *scenarioPath, *step, *events); err != nil {
		fmt.Fprintf(os.Stderr, "waterlens-mock: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, scenarioPath string, step time.Duration, eventsPath string) error {
	sc := mockapi.DefaultScenario(step)
	if scenarioPath != "" {
		loaded, err := mockapi.LoadScenario(scenarioPath)
		if err != nil {
			return err
		}
		sc = loaded
	}

	opts := []mockapi.Option{mockapi.WithScenario(sc)}
	if eventsPath != "" {
		f, err := otel.OpenFile(eventsPath)
		if err != nil {
			return err
		}
		defer f.Close()
		ev := otel.NewLogger(f)
		defer ev.Close()
		opts = append(opts, mockapi.WithEventLog(ev))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("scenario loaded", "name", sc.Name, "frames", len(sc.Frames), "outcome", sc.Outcome())
	return mockapi.New(opts...).Run(ctx, addr)
}
