package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/config"
	"github.com/abelbrown/waterlens/internal/logging"
)

var errUsage = errors.New("missing argument")

// setup loads the configuration, points logging at stderr and builds a
// client.
func setup(opts ...api.Option) (*config.Config, *api.Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, nil, err
	}
	logging.InitWriter(os.Stderr, cfg.Verbose)
	opts = append([]api.Option{api.WithTimeout(cfg.Timeout)}, opts...)
	return cfg, api.NewClient(cfg.APIURL, opts...), nil
}

// signalContext is cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var pos []string
	for {
		fs.Parse(args)
		args = fs.Args()
		if len(args) == 0 {
			return pos
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// oneArg returns the single positional argument named name.
func oneArg(fs *flag.FlagSet, name string) (string, error) {
	pos := parseArgs(fs, os.Args[1:])
	if len(pos) != 1 {
		fmt.Fprintf(os.Stderr, "usage: wl %s <%s>\n", fs.Name(), name)
		fs.PrintDefaults()
		return "", fmt.Errorf("%w: expected %s", errUsage, name)
	}
	return pos[0], nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
