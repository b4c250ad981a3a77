package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/config"
)

// AdminAuthMiddleware guards the admin API. A request passes with either a
// valid HMAC-signed JWT or one of the configured static bearer tokens.
func AdminAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	var staticTokens []string
	for _, t := range strings.Split(cfg.StaticTokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			staticTokens = append(staticTokens, t)
		}
	}
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		if jwtSecret != "" {
			_, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(jwtSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				c.Next()
				return
			}
		}

		for _, t := range staticTokens {
			if tokenStr == t {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}
