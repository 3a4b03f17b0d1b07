package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func perform(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSuccess(t *testing.T) {
	w := perform(func(c *gin.Context) {
		Success(c, gin.H{"key": "value"})
	})

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", data["key"])
}

func TestSuccessWithMessage(t *testing.T) {
	w := perform(func(c *gin.Context) {
		SuccessWithMessage(c, "plan upgraded", nil)
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "plan upgraded", resp.Message)
}

func TestSuccessPage(t *testing.T) {
	w := perform(func(c *gin.Context) {
		SuccessPage(c, 42, 2, 10, []string{"a", "b"})
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), data["total"])
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(10), data["page_size"])
}

func TestError_DefaultMessages(t *testing.T) {
	cases := []struct {
		name    string
		write   gin.HandlerFunc
		code    int
		message string
	}{
		{"param", func(c *gin.Context) { ParamError(c, "") }, CodeParamError, "invalid parameters"},
		{"auth", func(c *gin.Context) { AuthError(c, "") }, CodeAuthFailed, "authentication failed"},
		{"permission", func(c *gin.Context) { PermissionError(c, "") }, CodePermissionDenied, "permission denied"},
		{"not found", func(c *gin.Context) { NotFoundError(c, "") }, CodeResourceNotFound, "resource not found"},
		{"tokens", func(c *gin.Context) { TokensError(c, "") }, CodeInsufficientTokens, "insufficient tokens"},
		{"duplicate", func(c *gin.Context) { DuplicateError(c, "") }, CodeDuplicateAction, "duplicate action"},
		{"rate limit", func(c *gin.Context) { RateLimitError(c, "") }, CodeRateLimited, "too many requests"},
		{"server", func(c *gin.Context) { ServerError(c, "") }, CodeServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := perform(tc.write)

			// Errors still ride HTTP 200; the envelope code carries the status.
			assert.Equal(t, http.StatusOK, w.Code)

			resp := parseResponse(t, w)
			assert.Equal(t, tc.code, resp.Code)
			assert.Equal(t, tc.message, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestError_CustomMessage(t *testing.T) {
	w := perform(func(c *gin.Context) {
		TokensError(c, "insufficient tokens: need 3, have 2")
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeInsufficientTokens, resp.Code)
	assert.Equal(t, "insufficient tokens: need 3, have 2", resp.Message)
}
