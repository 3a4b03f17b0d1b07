package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/gateway"
	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

// writeServiceError maps the metering error taxonomy onto response codes so
// individual handlers stay free of backend-specific error handling.
func writeServiceError(c *gin.Context, err error) {
	var insufficient *service.InsufficientTokensError
	var rejected *gateway.RejectedError
	var transport *gateway.TransportError

	switch {
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCredit),
		errors.Is(err, service.ErrUnknownPlan),
		errors.Is(err, service.ErrNotAnUpgrade),
		errors.Is(err, service.ErrInvalidGrantType):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrIdentityMismatch):
		response.AuthError(c, "please log in again")
	case errors.Is(err, service.ErrRateLimited):
		response.RateLimitError(c, err.Error())
	case errors.As(err, &insufficient):
		response.TokensError(c, insufficient.Error())
	case errors.As(err, &rejected):
		response.TokensError(c, rejected.Reason)
	case errors.As(err, &transport):
		response.ServerError(c, "accounting backend unavailable")
	default:
		response.ServerError(c, "")
	}
}
