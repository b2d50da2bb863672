package mockapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/eventstream"
	"github.com/abelbrown/waterlens/internal/intake"
	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/otel"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, api.Health{
		Status:    "ok",
		Version:   Version,
		Timestamp: s.now().Unix(),
	})
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("pdf")
	if err != nil {
		return newBadRequest("No PDF file provided", err)
	}
	if fh.Size > s.maxSize {
		return newTooLarge(s.maxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return newBadRequest("Unreadable upload", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return newBadRequest("Unreadable upload", err)
	}
	if http.DetectContentType(head[:n]) != intake.PDFType {
		return newBadRequest("Only PDF files are allowed", nil)
	}

	if s.scenario.RejectUpload != "" {
		return c.JSON(http.StatusOK, api.UploadResponse{Success: false, Error: s.scenario.RejectUpload})
	}

	a := s.analyses.add(filepath.Base(fh.Filename), c.FormValue("userId"), fh.Size, s.now(), s.scenario.NaiveTimes)
	s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindUploadComplete, Comp: "mock", AnalysisID: a.id, Bytes: fh.Size, Msg: a.filename})
	logging.Info("mock analysis started", "analysis", a.id, "file", a.filename, "size", fh.Size)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		play(s.ctx, a, s.scenario, s.now)
	}()

	return c.JSON(http.StatusOK, api.UploadResponse{
		Success:    true,
		AnalysisID: a.id,
		Message:    "PDF uploaded, analysis started",
	})
}

func (s *Server) lookup(c echo.Context) (*analysis, error) {
	id := c.Param("id")
	a, ok := s.analyses.get(id)
	if !ok {
		return nil, newNotFound(id)
	}
	return a, nil
}

func (s *Server) handleStatus(c echo.Context) error {
	a, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.status())
}

// handleStream replays every frame emitted so far, then follows playback
// until it finishes. Late subscribers see the full history.
func (s *Server) handleStream(c echo.Context) error {
	a, err := s.lookup(c)
	if err != nil {
		return err
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	ctx := c.Request().Context()
	sent := 0
	for {
		payloads, finished, changed := a.snapshot(sent)
		for _, p := range payloads {
			if err := eventstream.WriteRaw(c.Response(), p); err != nil {
				return nil // client went away
			}
			c.Response().Flush()
		}
		sent += len(payloads)
		if finished {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil
		case <-s.ctx.Done():
			return nil
		}
	}
}

func (s *Server) handleResult(c echo.Context) error {
	a, err := s.lookup(c)
	if err != nil {
		return err
	}
	done, ok := a.completedAt()
	if !ok {
		return newNotReady(a.id)
	}
	return c.JSON(http.StatusOK, api.AnalysisResult{
		ID:               a.id,
		OriginalFilename: a.filename,
		AnalysisMarkdown: s.scenario.ResultMarkdown,
		AnalysisDate:     a.stamp(done),
		ProcessingTime:   done.Sub(a.started).Seconds(),
		PDFURL:           "/api/download/" + a.id,
		PreviewURL:       "/api/preview/" + a.id,
	})
}

func (s *Server) handlePreview(c echo.Context) error {
	a, err := s.lookup(c)
	if err != nil {
		return err
	}
	done, ok := a.completedAt()
	if !ok {
		return newNotReady(a.id)
	}
	return c.JSON(http.StatusOK, api.AnalysisPreview{
		ID:       a.id,
		Markdown: s.scenario.ResultMarkdown,
		Metadata: api.PreviewMetadata{
			OriginalFilename: a.filename,
			AnalysisDate:     a.stamp(done).String(),
			ProcessingTime:   done.Sub(a.started).Seconds(),
		},
	})
}

func (s *Server) handleDownload(c echo.Context) error {
	a, err := s.lookup(c)
	if err != nil {
		return err
	}
	done, ok := a.completedAt()
	if !ok {
		return newNotReady(a.id)
	}
	name := api.ReportFilename(done)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, "application/pdf", reportPDF(a.filename))
}

// reportPDF is a minimal single-page PDF naming the analyzed file.
func reportPDF(source string) []byte {
	return []byte(fmt.Sprintf(`%%PDF-1.4
1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj
2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj
3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >> endobj
%% Water test analysis report for %s
trailer << /Root 1 0 R >>
%%%%EOF
`, source))
}
