package middleware

import (
	"mytestbuddies_backend/internal/util"
	"mytestbuddies_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserActivityRepo interface {
	UpdateLastSeen(userID uint) error
}

// ActivityMiddleware stamps last_seen for authenticated requests. The write
// happens off the request path so a slow database never delays a response.
func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := util.GetUserFromContext(c); user != nil {
			go func(id uint) {
				if err := repo.UpdateLastSeen(id); err != nil {
					logger.Log.Debug("update last_seen", zap.Uint("user_id", id), zap.Error(err))
				}
			}(user.UserID)
		}
		c.Next()
	}
}
