package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

type EmailHandler struct {
	emailService *service.EmailService
}

func NewEmailHandler(emailService *service.EmailService) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
	}
}

// SendWelcome triggers the transactional welcome mail. Repeat calls for the
// same user signal "already sent" instead of mailing twice.
// POST /api/v1/emails/welcome
func (h *EmailHandler) SendWelcome(c *gin.Context) {
	var req dto.WelcomeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.emailService.SendWelcome(req.UserID, req.Email, req.Name); err != nil {
		if err == service.ErrWelcomeAlreadySent {
			response.DuplicateError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "welcome email sent", nil)
}
