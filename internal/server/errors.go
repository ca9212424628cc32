package server

import (
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"scribe/internal/session"
)

type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &statusError{status: http.StatusBadRequest, err: err}
}

func withStatus(status int, err error) error {
	return &statusError{status: status, err: err}
}

func statusOf(err error) int {
	var se *statusError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &se):
		return se.status
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNoResult), errors.Is(err, session.ErrCleared):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders the last handler error as {"error": "..."}.
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", "path", c.FullPath(), "err", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
	}
}
