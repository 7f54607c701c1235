package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

const (
	claimsKey   = "claims"
	TokenCookie = "token"
)

// TokenParser 由 service.AuthService 实现
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

// Authenticate 解析 Bearer 头或 token cookie；无效令牌按匿名处理
func Authenticate(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c.GetHeader("Authorization"))
		if tok == "" {
			tok, _ = c.Cookie(TokenCookie)
		}
		if tok != "" {
			if claims, err := p.ParseToken(tok); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// RequireAuth 未登录返回 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin 非管理员返回 403
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if !claims.IsAdmin {
			response.Forbidden(c, "admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*service.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*service.Claims)
	return claims, ok
}

// ViewerID 匿名为 0
func ViewerID(c *gin.Context) uint {
	if claims, ok := CurrentUser(c); ok {
		return claims.UserID
	}
	return 0
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
