package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

type AdminHandler struct {
	adminService   *service.AdminService
	supportService *service.SupportService
}

func NewAdminHandler(adminService *service.AdminService, supportService *service.SupportService) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		supportService: supportService,
	}
}

// ListUsers pages through all accounts.
// GET /api/v1/admin/users?page=1&page_size=20
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, total, err := h.adminService.ListUsers(page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, users)
}

// SetAdmin toggles a user's administrator flag.
// PUT /api/v1/admin/users/:id/admin
func (h *AdminHandler) SetAdmin(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid user id")
		return
	}

	var req dto.SetAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.adminService.SetAdmin(userID, req.IsAdmin); err != nil {
		if err == service.ErrUserNotFound {
			response.NotFoundError(c, "")
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "updated", nil)
}

// GrantTokens credits a user on behalf of an admin.
// POST /api/v1/admin/users/:id/tokens
func (h *AdminHandler) GrantTokens(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid user id")
		return
	}

	var req dto.GrantTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.adminService.GrantTokens(c.Request.Context(), userID,
		req.Amount, req.Type, req.Description)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// GetUserHistory returns a user's token ledger.
// GET /api/v1/admin/users/:id/history?limit=50
func (h *AdminHandler) GetUserHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid user id")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.adminService.UserTokenHistory(c.Request.Context(), userID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, history)
}

// GetAnalytics returns the dashboard counters.
// GET /api/v1/admin/analytics
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.adminService.GetAnalytics()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, analytics)
}

// ListSupport pages through support messages.
// GET /api/v1/admin/support?status=open
func (h *AdminHandler) ListSupport(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := c.Query("status")

	msgs, total, err := h.supportService.List(status, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, msgs)
}

// ResolveSupport closes a support message with a reply.
// PUT /api/v1/admin/support/:id/resolve
func (h *AdminHandler) ResolveSupport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid message id")
		return
	}

	var req dto.ResolveSupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.supportService.Resolve(id, req.Reply); err != nil {
		if err == service.ErrSupportMessageNotFound {
			response.NotFoundError(c, "")
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "resolved", nil)
}
