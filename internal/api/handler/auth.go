package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/api/middleware"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates a new account.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		if err == service.ErrEmailExists || err == service.ErrUsernameExists {
			response.DuplicateError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "registered, please verify your email", resp)
}

// Login exchanges credentials for a token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			response.AuthError(c, err.Error())
		case service.ErrEmailNotVerified:
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

// VerifyEmail redeems a verification code.
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.VerifyEmail(req.Code); err != nil {
		if err == service.ErrInvalidVerifyCode {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "email verified", nil)
}

// GithubAuth redirects to the GitHub authorization page.
// GET /api/v1/auth/github
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	url, err := h.authService.GithubAuthURL(c.Request.Context(), c.Query("redirect_uri"))
	if err != nil {
		response.ServerError(c, "")
		return
	}
	c.Redirect(http.StatusFound, url)
}

// GithubCallback completes the OAuth flow.
// GET /api/v1/auth/github/callback
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.ParamError(c, "missing code")
		return
	}

	resp, err := h.authService.GithubCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		if err == service.ErrInvalidOAuthState {
			response.AuthError(c, err.Error())
			return
		}
		response.AuthError(c, "github sign-in failed")
		return
	}

	response.Success(c, resp)
}

// GetProfile returns the caller's profile.
// GET /api/v1/user/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	profile, err := h.authService.GetProfile(userID)
	if err != nil {
		if err == service.ErrUserNotFound {
			response.NotFoundError(c, "")
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, profile)
}
