package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt"
)

// RoleAdmin marks operators allowed to review and resolve alerts.
const RoleAdmin = "ADMIN"

const userIDKey = "userID"

// Auth verifies bearer tokens issued by the platform's identity service.
// Token issuance lives elsewhere; this service only checks the signature and
// reads the user_id and role claims.
type Auth struct {
	accessSecret string
}

func NewAuth(accessSecret string) *Auth {
	return &Auth{accessSecret: accessSecret}
}

// RequireUser admits any authenticated caller and records their user id on
// the request context.
func (a *Auth) RequireUser() gin.HandlerFunc {
	return a.require("")
}

// RequireRole additionally demands a specific role claim.
func (a *Auth) RequireRole(role string) gin.HandlerFunc {
	return a.require(role)
}

func (a *Auth) require(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(a.accessSecret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid claims")
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			abortUnauthorized(c, "user id not found in token")
			return
		}

		if role != "" {
			tokenRole, _ := claims["role"].(string)
			if tokenRole != role {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":   "forbidden",
					"message": "insufficient role",
					"status":  "FAILED",
				})
				return
			}
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": msg,
		"status":  "FAILED",
	})
}

func callerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
