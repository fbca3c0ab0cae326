package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Actor is the authenticated caller. StudentID is empty for admins.
type Actor struct {
	ID        uint
	StudentID string
	Role      Role
}

// CanAccess reports whether the actor may read or mutate a record owned by
// the given student. Admins may access everything.
func (a Actor) CanAccess(stuID string) bool {
	return a.Role == RoleAdmin || a.StudentID == stuID
}

const actorKey = "actor"

// Auth verifies the bearer token and resolves the request's actor.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication token missing",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication token invalid or expired",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication token invalid or expired",
			})
			c.Abort()
			return
		}

		actor := Actor{}
		if sub, ok := claims["sub"].(float64); ok {
			actor.ID = uint(sub)
		}
		if role, ok := claims["role"].(string); ok {
			actor.Role = Role(role)
		}
		if stuID, ok := claims["student_id"].(string); ok {
			actor.StudentID = stuID
		}
		if actor.Role != RoleAdmin && actor.Role != RoleStudent {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication token invalid or expired",
			})
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalAuth resolves the actor when a valid token is present but never
// rejects the request. Used by the bootstrap registration endpoint.
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.Next()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			actor := Actor{}
			if sub, ok := claims["sub"].(float64); ok {
				actor.ID = uint(sub)
			}
			if role, ok := claims["role"].(string); ok {
				actor.Role = Role(role)
			}
			if stuID, ok := claims["student_id"].(string); ok {
				actor.StudentID = stuID
			}
			c.Set(actorKey, actor)
		}
		c.Next()
	}
}

// RequireRoles is the per-route allow-list. Must run after Auth.
func RequireRoles(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You are not allowed to perform this action",
		})
		c.Abort()
	}
}

// CurrentActor returns the actor resolved by Auth. Zero value if unset.
func CurrentActor(c *gin.Context) Actor {
	if v, exists := c.Get(actorKey); exists {
		if actor, ok := v.(Actor); ok {
			return actor
		}
	}
	return Actor{}
}
