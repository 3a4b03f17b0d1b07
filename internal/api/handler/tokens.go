package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/api/middleware"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

type TokenHandler struct {
	tokenService *service.TokenService
}

func NewTokenHandler(tokenService *service.TokenService) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
	}
}

// GetBalance returns the caller's token balance.
// GET /api/v1/tokens/balance
func (h *TokenHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	balance, err := h.tokenService.CheckBalance(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, balance)
}

// GetHistory returns the caller's transaction history, newest first.
// GET /api/v1/tokens/history?limit=50
func (h *TokenHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.tokenService.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, history)
}

// Deduct spends tokens for a generation action.
// POST /api/v1/tokens/deduct
func (h *TokenHandler) Deduct(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.DeductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.tokenService.Deduct(c.Request.Context(), userID, userID,
		req.Amount, req.Description, req.ReferenceID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Validate probes whether the caller can afford an operation.
// POST /api/v1/tokens/validate
func (h *TokenHandler) Validate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.tokenService.ValidateOperation(c.Request.Context(), userID, req.RequiredTokens)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}
