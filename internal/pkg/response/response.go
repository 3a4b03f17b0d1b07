package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	CodeSuccess            = 0
	CodeParamError         = 1000
	CodeAuthFailed         = 1001
	CodePermissionDenied   = 1002
	CodeResourceNotFound   = 1003
	CodeInsufficientTokens = 1004
	CodeDuplicateAction    = 1005
	CodeRateLimited        = 1006
	CodeServerError        = 5000
)

// Default messages per code
var codeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeParamError:         "invalid parameters",
	CodeAuthFailed:         "authentication failed",
	CodePermissionDenied:   "permission denied",
	CodeResourceNotFound:   "resource not found",
	CodeInsufficientTokens: "insufficient tokens",
	CodeDuplicateAction:    "duplicate action",
	CodeRateLimited:        "too many requests",
	CodeServerError:        "internal server error",
}

// Response is the uniform envelope for every API reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData wraps paginated payloads.
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// Success writes a success envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage writes a success envelope with a custom message.
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// SuccessPage writes a paginated success envelope.
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: PageData{
			Total:    total,
			Page:     page,
			PageSize: pageSize,
			Items:    items,
		},
	})
}

// Error writes an error envelope.
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ParamError reports invalid input.
func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// AuthError reports an authentication failure.
func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

// PermissionError reports a denied action.
func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

// NotFoundError reports a missing resource.
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// TokensError reports an insufficient-balance rejection.
func TokensError(c *gin.Context, message string) {
	Error(c, CodeInsufficientTokens, message)
}

// DuplicateError reports a repeated action.
func DuplicateError(c *gin.Context, message string) {
	Error(c, CodeDuplicateAction, message)
}

// RateLimitError reports a throttled request.
func RateLimitError(c *gin.Context, message string) {
	Error(c, CodeRateLimited, message)
}

// ServerError reports an internal failure.
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
