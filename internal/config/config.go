// Package config resolves waterlens settings from the environment.
//
// A .env file in the working directory is loaded first when present; values
// already set in the process environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names. The VITE_* names are accepted as fallbacks so
// an existing web-client .env keeps working.
const (
	EnvAPIURL      = "WATERLENS_API_URL"
	EnvVerbose     = "WATERLENS_VERBOSE"
	EnvTimeout     = "WATERLENS_TIMEOUT"
	EnvDataDir     = "WATERLENS_DATA_DIR"
	EnvDownloadDir = "WATERLENS_DOWNLOAD_DIR"
	EnvTrace       = "WATERLENS_TRACE"

	legacyAPIURL  = "VITE_API_URL"
	legacyVerbose = "VITE_TEST_ENV"
)

// DefaultAPIURL is where the analysis service listens by default.
const DefaultAPIURL = "http://localhost:2104"

// Config holds the resolved settings.
type Config struct {
	APIURL      string        // base URL of the analysis API, no trailing slash
	Verbose     bool          // debug-level logging of every request and frame
	Timeout     time.Duration // per-request timeout; the stream itself has none
	DataDir     string        // logs and event log live here
	DownloadDir string        // where downloaded reports are written
	Trace       string        // components emitting trace events, e.g. "ui,api"
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		APIURL:      DefaultAPIURL,
		Timeout:     60 * time.Second,
		DataDir:     filepath.Join(home, ".waterlens"),
		DownloadDir: ".",
	}
}

// Load reads envFile (if it exists) into the environment and resolves the
// configuration from it. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv resolves the configuration through getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if v := firstNonEmpty(getenv(EnvAPIURL), getenv(legacyAPIURL)); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	cfg.Verbose = isTrue(getenv(EnvVerbose)) || isTrue(getenv(legacyVerbose))

	if v := getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v := getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := getenv(EnvDownloadDir); v != "" {
		cfg.DownloadDir = v
	}
	cfg.Trace = getenv(EnvTrace)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API URL %q: scheme must be http or https", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid API URL %q: missing host", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// LogDir returns the directory for log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// EventLogPath returns the JSONL diagnostic event log path.
func (c *Config) EventLogPath() string {
	return filepath.Join(c.DataDir, "events.jsonl")
}

// EnsureDirs creates the data and log directories.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.LogDir(), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return nil
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
