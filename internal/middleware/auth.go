package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/service"
	"github.com/wfunc/party-market/internal/utils"
)

// AuthMiddleware 主持人JWT认证中间件
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireHost 需要主持人登录的路由
func (m *AuthMiddleware) RequireHost() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    apperrors.ErrAuthentication,
				"message": "缺少认证令牌",
			})
			c.Abort()
			return
		}

		host, err := m.authService.Validate(c.Request.Context(), token)
		if err != nil {
			code := apperrors.ErrTokenInvalid
			if errors.Is(err, utils.ErrExpiredToken) {
				code = apperrors.ErrTokenExpired
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    code,
				"message": "无效的令牌",
			})
			c.Abort()
			return
		}

		c.Set("hostID", host.ID)
		c.Set("hostUsername", host.Username)
		c.Next()
	}
}

// extractToken 从请求中提取令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// Authorization: Bearer <token>
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// websocket 握手无法带自定义头，允许query传递
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetHostID 从上下文获取主持人ID
func GetHostID(c *gin.Context) (uint, bool) {
	if hostID, exists := c.Get("hostID"); exists {
		if id, ok := hostID.(uint); ok {
			return id, true
		}
	}
	return 0, false
}

// GetHostUsername 从上下文获取主持人用户名
func GetHostUsername(c *gin.Context) (string, bool) {
	if username, exists := c.Get("hostUsername"); exists {
		if name, ok := username.(string); ok {
			return name, true
		}
	}
	return "", false
}
