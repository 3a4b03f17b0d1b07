package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

type HealthHandler struct {
	tokenService *service.TokenService
}

func NewHealthHandler(tokenService *service.TokenService) *HealthHandler {
	return &HealthHandler{
		tokenService: tokenService,
	}
}

// Check probes connectivity to the accounting backend.
// GET /api/v1/health
func (h *HealthHandler) Check(c *gin.Context) {
	response.Success(c, h.tokenService.HealthCheck(c.Request.Context()))
}
