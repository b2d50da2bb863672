// Package mockapi is a scripted stand-in for the water-test analysis
// service. It implements the same HTTP routes, accepts PDF uploads and
// replays a Scenario of workflow frames over the stream endpoint. It does no
// parsing or analysis of its own.
package mockapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/otel"
)

// Version is reported by the health endpoint.
const Version = "1.0.0-mock"

// shutdownTimeout bounds how long Run waits for open streams on exit.
const shutdownTimeout = 5 * time.Second

// Server serves the analysis API from memory.
type Server struct {
	echo     *echo.Echo
	scenario Scenario
	analyses *registry
	events   *otel.Logger
	now      func() time.Time
	maxSize  int64

	// playback goroutines stop when ctx is cancelled
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithScenario sets the script every upload replays.
func WithScenario(sc Scenario) Option {
	return func(s *Server) {
		s.scenario = sc
	}
}

// WithEventLog sends diagnostic events to l.
func WithEventLog(l *otel.Logger) Option {
	return func(s *Server) {
		s.events = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithMaxUploadSize overrides the 10 MiB upload ceiling.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		s.maxSize = n
	}
}

// New builds a Server with its routes registered.
func New(opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		echo:     echo.New(),
		scenario: DefaultScenario(500 * time.Millisecond),
		analyses: newRegistry(),
		now:      time.Now,
		maxSize:  intake.MaxSize,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logging.Debug("mock request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	g := e.Group("/api")
	g.GET("/health", s.handleHealth)
	g.POST("/upload-pdf", s.handleUpload)
	g.GET("/status/:id", s.handleStatus)
	g.GET("/stream/:id", s.handleStream)
	g.GET("/result/:id", s.handleResult)
	g.GET("/preview/:id", s.handlePreview)
	g.GET("/download/:id", s.handleDownload)

	return s
}

// Handler exposes the server for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Analyses returns how many uploads have been accepted.
func (s *Server) Analyses() int {
	return s.analyses.len()
}

// Close stops every playback and waits for it to return.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("mock api listening", "addr", addr, "scenario", s.scenario.Name)
		s.events.Info(otel.KindStartup, "mock", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.events.Info(otel.KindShutdown, "mock", addr)
		return s.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
