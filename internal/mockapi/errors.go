package mockapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abelbrown/waterlens/internal/logging"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newBadRequest(message string, cause error) *APIError {
	err := &APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func newNotFound(id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("analysis not found: %s", id),
	}
}

func newNotReady(id string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "NOT_READY",
		Message: fmt.Sprintf("analysis %s has not completed", id),
	}
}

func newTooLarge(limit int64) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "TOO_LARGE",
		Message: fmt.Sprintf("file exceeds %d bytes", limit),
	}
}

// errorHandler renders any handler error as an APIError body.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		}
	}

	if apiErr.Status >= 500 {
		logging.Error("mock api request failed", "path", c.Request().URL.Path, "err", err)
	}
	if err := c.JSON(apiErr.Status, apiErr); err != nil {
		logging.Warn("write error response", "err", err)
	}
}
