// Package api is the HTTP client for the water-test analysis service.
//
// Every request follows one error contract: a non-2xx response or a network
// failure comes back as *TransportError. The progress stream is decoded by
// internal/eventstream; see StreamWorkflow.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/otel"
	"golang.org/x/time/rate"
)

const (
	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 4 << 10

	userAgent = "waterlens/0.1"
)

// Uploadable is anything that can be sent to the upload endpoint.
// intake.File satisfies it.
type Uploadable interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Client talks to one analysis service.
type Client struct {
	baseURL string
	client  *http.Client // request/response calls, with timeout
	stream  *http.Client // long-lived stream, no timeout
	events  *otel.Logger
	userID  string

	// malformedLog limits "malformed frame" warnings so a broken server
	// cannot flood the log.
	malformedLog *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. The stream is never timed out.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient replaces both underlying HTTP clients. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
		c.stream = hc
	}
}

// WithEventLog sends diagnostic events to l.
func WithEventLog(l *otel.Logger) Option {
	return func(c *Client) {
		c.events = l
	}
}

// WithUserID adds a userId field to every upload.
func WithUserID(id string) Option {
	return func(c *Client) {
		c.userID = id
	}
}

// NewClient creates a Client for baseURL (e.g. "http://localhost:2104").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 60 * time.Second},
		stream:       &http.Client{},
		malformedLog: rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadFile sends f as multipart form data in the "pdf" field.
func (c *Client) UploadFile(ctx context.Context, f Uploadable) (UploadResponse, error) {
	rc, err := f.Open()
	if err != nil {
		return UploadResponse{}, &TransportError{Op: "upload", Err: fmt.Errorf("open %s: %w", f.Name(), err)}
	}
	defer rc.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf"; filename="%s"`, escapeQuotes(f.Name())))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return UploadResponse{}, &TransportError{Op: "upload", Err: err}
	}
	n, err := io.Copy(part, rc)
	if err != nil {
		return UploadResponse{}, &TransportError{Op: "upload", Err: fmt.Errorf("read %s: %w", f.Name(), err)}
	}
	if c.userID != "" {
		if err := mw.WriteField("userId", c.userID); err != nil {
			return UploadResponse{}, &TransportError{Op: "upload", Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return UploadResponse{}, &TransportError{Op: "upload", Err: err}
	}

	logging.Debug("uploading PDF", "file", f.Name(), "size", n)
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindUploadStart, Comp: "api", Msg: f.Name(), Bytes: n})

	start := time.Now()
	var resp UploadResponse
	err = c.doJSON(ctx, "upload", http.MethodPost, "/api/upload-pdf", &body, mw.FormDataContentType(), &resp)
	if err != nil {
		c.events.Error(otel.KindUploadError, "api", err)
		return UploadResponse{}, err
	}

	c.events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindUploadComplete,
		Comp:       "api",
		AnalysisID: resp.AnalysisID,
		Dur:        time.Since(start),
		Msg:        resp.Message,
	})
	return resp, nil
}

// Status fetches the polled status of an analysis.
func (c *Client) Status(ctx context.Context, id string) (AnalysisStatus, error) {
	var st AnalysisStatus
	err := c.doJSON(ctx, "status", http.MethodGet, "/api/status/"+url.PathEscape(id), nil, "", &st)
	return st, err
}

// Result fetches the finished report.
func (c *Client) Result(ctx context.Context, id string) (AnalysisResult, error) {
	var res AnalysisResult
	start := time.Now()
	if err := c.doJSON(ctx, "result", http.MethodGet, "/api/result/"+url.PathEscape(id), nil, "", &res); err != nil {
		c.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindResultError, Comp: "api", AnalysisID: id, Err: err.Error()})
		return AnalysisResult{}, err
	}
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindResultFetch, Comp: "api", AnalysisID: id, Dur: time.Since(start)})
	return res, nil
}

// Preview fetches the markdown preview of a finished report.
func (c *Client) Preview(ctx context.Context, id string) (AnalysisPreview, error) {
	var p AnalysisPreview
	err := c.doJSON(ctx, "preview", http.MethodGet, "/api/preview/"+url.PathEscape(id), nil, "", &p)
	if err == nil {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPreviewFetch, Comp: "api", AnalysisID: id})
	}
	return p, err
}

// Health probes the service.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.doJSON(ctx, "health", http.MethodGet, "/api/health", nil, "", &h)
	return h, err
}

// DownloadPDF opens the generated PDF report. The caller closes the reader.
func (c *Client) DownloadPDF(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/download/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, &TransportError{Op: "download", Err: err}
	}
	req.Header.Set("Accept", "application/pdf")

	logging.Debug("downloading PDF", "analysis", id)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "download", Err: err}
	}
	if err := checkStatus("download", resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadPDFTo writes the report to path and returns the bytes written.
// The file only appears once the download completed.
func (c *Client) DownloadPDFTo(ctx context.Context, id, path string) (int64, error) {
	body, err := c.DownloadPDF(ctx, id)
	if err != nil {
		c.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindDownloadError, Comp: "api", AnalysisID: id, Err: err.Error()})
		return 0, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".waterlens-*.pdf")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return 0, &TransportError{Op: "download", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}

	logging.Debug("PDF downloaded", "analysis", id, "path", path, "bytes", n)
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDownload, Comp: "api", AnalysisID: id, Bytes: n, Msg: path})
	return n, nil
}

// ReportFilename is the default file name for a report downloaded on day.
func ReportFilename(day time.Time) string {
	return fmt.Sprintf("water_analysis_%s.pdf", day.Format("2006-01-02"))
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// doJSON performs a request and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	logging.Debug("request", "op", op, "method", method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Debug("request failed", "op", op, "err", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		logging.Debug("request failed", "op", op, "status", resp.StatusCode, "err", err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	logging.Debug("response", "op", op, "status", resp.StatusCode)
	return nil
}

// checkStatus turns a non-2xx response into a *TransportError, consuming
// and closing the body.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
