package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/appcontext"
	"kardex/internal/core/apperror"
)

// TokenValidator validates bearer tokens and returns the acting user.
type TokenValidator interface {
	ValidateToken(tokenString string) (appcontext.Actor, error)
}

// Auth validates JWT tokens and populates the actor context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		actor, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := appcontext.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)

		c.Set("actor_id", actor.ID)

		c.Next()
	}
}

// RequireRole checks that the actor carries one of the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := appcontext.ActorFrom(c.Request.Context())
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}

		for _, required := range roles {
			if actor.HasRole(required) {
				c.Next()
				return
			}
		}

		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
