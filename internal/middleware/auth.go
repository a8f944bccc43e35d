package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Context keys set by Auth for downstream handlers.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextFullName = "full_name"
)

// Claims carried by the identity service's access tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token and puts the caller's identity on the gin
// context. Tokens are issued by the external identity service; this engine
// only validates them. Websocket endpoints accept the token as a `token`
// query parameter since browsers cannot set headers on websocket upgrades.
func Auth(secret string) gin.HandlerFunc {
	if secret == "" {
		panic("jwt secret cannot be empty for Auth middleware")
	}
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			var ve *jwt.ValidationError
			switch {
			case errors.Is(err, jwt.ErrSignatureInvalid):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token signature is invalid"})
			case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token has expired"})
			case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorMalformed != 0:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token is malformed"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			}
			c.Abort()
			return
		}
		if !token.Valid || claims.UserID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextFullName, claims.FullName)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
