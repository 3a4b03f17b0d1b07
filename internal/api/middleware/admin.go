package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/repository"
)

// AdminOnly rejects requests from non-admin users. Must run after Auth.
func AdminOnly(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil {
			response.AuthError(c, "")
			c.Abort()
			return
		}
		if !user.IsAdmin {
			response.PermissionError(c, "administrator access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
