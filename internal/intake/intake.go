// Package intake validates a local file before it is offered for upload.
//
// A file that fails Validate is never handed to the transport client.
package intake

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MaxSize is the largest accepted upload, 10 MiB.
	MaxSize int64 = 10 << 20

	// PDFType is the only accepted MIME type.
	PDFType = "application/pdf"

	// sniffLen is how much of the file http.DetectContentType looks at.
	sniffLen = 512
)

// ValidationError is a user-facing rejection of a selected file.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// File is a local file the user selected.
type File struct {
	Path     string
	Size     int64
	MIMEType string
}

// Name returns the base name sent as the upload filename.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Open opens the file for reading.
func (f File) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Open stats path and detects its MIME type. It does not validate.
func Open(path string) (File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return File{}, &ValidationError{Message: "No file selected"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, &ValidationError{Path: path, Message: fmt.Sprintf("%s is a directory", filepath.Base(path))}
	}

	mimeType, err := detectType(path)
	if err != nil {
		return File{}, err
	}

	return File{
		Path:     path,
		Size:     info.Size(),
		MIMEType: mimeType,
	}, nil
}

// Validate rejects anything that is not a PDF or is larger than MaxSize.
// It returns nil for an acceptable file.
func Validate(f File) *ValidationError {
	if f.MIMEType != PDFType {
		return &ValidationError{Path: f.Path, Message: "Only PDF files are allowed"}
	}
	if f.Size > MaxSize {
		return &ValidationError{
			Path:    f.Path,
			Message: fmt.Sprintf("File is too large. Maximum size: %dMB", MaxSize>>20),
		}
	}
	return nil
}

// OpenValid is Open followed by Validate.
func OpenValid(path string) (File, error) {
	f, err := Open(path)
	if err != nil {
		return File{}, err
	}
	if verr := Validate(f); verr != nil {
		return File{}, verr
	}
	return f, nil
}

// detectType sniffs the leading bytes and falls back to the extension when
// the content is not recognized.
func detectType(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(fh, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	sniffed := http.DetectContentType(head[:n])
	if sniffed != "application/octet-stream" {
		return baseType(sniffed), nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return baseType(byExt), nil
	}
	return sniffed, nil
}

// baseType drops MIME parameters such as "; charset=utf-8".
func baseType(t string) string {
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return t
	}
	return mt
}
