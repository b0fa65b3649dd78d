package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago/tripbooking/internal/service/booking"
)

const (
	codeNoActiveSession      = "NO_ACTIVE_SESSION"
	codeSessionExpired       = "SESSION_EXPIRED"
	codeRevalidationRequired = "REVALIDATION_REQUIRED"
	codeResourceUnavailable  = "RESOURCE_UNAVAILABLE"
	codeValidation           = "VALIDATION"
	codeProviderFailure      = "PROVIDER_FAILURE"
	codePartialCompletion    = "PARTIAL_COMPLETION"
	codeMissingTripKey       = "MISSING_TRIP_KEY"
	codeInternal             = "INTERNAL"
)

// respondError translates the booking error taxonomy into status codes the
// client can branch on without parsing messages.
func respondError(c *gin.Context, err error) {
	var partial *booking.PartialCompletionError
	if errors.As(err, &partial) {
		body := gin.H{
			"error":       partial.Error(),
			"code":        codePartialCompletion,
			"failed_leg":  partial.FailedLeg,
			"compensated": partial.Compensated,
		}
		if partial.Flight != nil {
			body["flight"] = partial.Flight
		}
		c.JSON(http.StatusBadGateway, body)
		return
	}

	status, code := http.StatusInternalServerError, codeInternal
	switch {
	case errors.Is(err, booking.ErrNoActiveSession):
		status, code = http.StatusNotFound, codeNoActiveSession
	case errors.Is(err, booking.ErrSessionExpired):
		status, code = http.StatusGone, codeSessionExpired
	case errors.Is(err, booking.ErrRevalidationRequired):
		status, code = http.StatusConflict, codeRevalidationRequired
	case errors.Is(err, booking.ErrResourceUnavailable):
		status, code = http.StatusConflict, codeResourceUnavailable
	case errors.Is(err, booking.ErrValidation):
		status, code = http.StatusUnprocessableEntity, codeValidation
	case errors.Is(err, booking.ErrProviderFailure):
		status, code = http.StatusBadGateway, codeProviderFailure
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func respondNoSession(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "no active session for this trip", "code": codeNoActiveSession})
}
