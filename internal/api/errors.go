package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

// Response is the envelope of every API reply
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// errorStatus maps domain errors onto HTTP status codes
func errorStatus(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrEmptyContent),
		errors.Is(err, types.ErrEmptyTitle):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrConflict),
		errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, types.ErrTombstoned):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err inside the envelope. Internal errors are logged
// and their text is not sent to the client.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := errorStatus(err)
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, isString := he.Message.(string); isString {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		message = http.StatusText(status)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, Response{Success: false, Error: message})
	}
	if writeErr != nil {
		s.logger.Warn("failed to write error response", zap.Error(writeErr))
	}
}
