package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/api/middleware"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

type SupportHandler struct {
	supportService *service.SupportService
}

func NewSupportHandler(supportService *service.SupportService) *SupportHandler {
	return &SupportHandler{
		supportService: supportService,
	}
}

// Create files a support message for the caller.
// POST /api/v1/support
func (h *SupportHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SupportMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	msg, err := h.supportService.Create(userID, req.Subject, req.Body)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "message received", msg)
}

// ListMine returns the caller's support messages.
// GET /api/v1/support
func (h *SupportHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	msgs, err := h.supportService.ListForUser(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, msgs)
}
