// Package respond maps domain errors onto API error responses.
package respond

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethanbaker/callsim/pkg/reply"
	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/ethanbaker/callsim/pkg/session"
	"github.com/ethanbaker/callsim/pkg/speech"
	"github.com/ethanbaker/callsim/pkg/transcribe"
	"github.com/ethanbaker/callsim/pkg/turn"
	"github.com/gin-gonic/gin"
)

// StatusFor returns the HTTP status for an error from the session manager or turn pipeline.
// A backend call that ran out of time is a 504 whichever stage it came from
func StatusFor(err error) int {
	switch {
	case errors.Is(err, turn.ErrInvalidRequest), errors.Is(err, session.ErrConfirmationMismatch):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyActive), errors.Is(err, session.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, transcribe.ErrTranscription):
		return http.StatusUnprocessableEntity
	case errors.Is(err, reply.ErrGeneration), errors.Is(err, speech.ErrSynthesis):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNoSubjectsAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes an error response with the status StatusFor picks
func Error(c *gin.Context, message string, err error) {
	c.JSON(sdk.NewErrorResponse(StatusFor(err), message, err.Error()).AsGinResponse())
}

// BadRequest writes a 400 response
func BadRequest(c *gin.Context, message string, err error) {
	var detail any
	if err != nil {
		detail = err.Error()
	}
	c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, message, detail).AsGinResponse())
}
