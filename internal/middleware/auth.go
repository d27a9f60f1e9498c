package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/auth"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

const actorKey = "actor"

// TokenParser is satisfied by *auth.Tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// ActorLookup resolves the current role of a token's subject. It fails with
// an apperr Unauthorized error when the account is gone or inactive.
type ActorLookup interface {
	ActiveRole(ctx context.Context, userID uint) (models.Role, error)
}

// AuthMiddleware rejects requests without a valid bearer token for an active
// account and stores the caller as an authz.Actor on the context. The role
// comes from the stored account, not from the token.
func AuthMiddleware(tokens TokenParser, users ActorLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, tokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid authorization token"})
			return
		}
		actor, err := resolveActor(c, users, claims)
		if err != nil {
			abortLookup(c, err)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token for an active account
// is present and lets everyone else through as anonymous.
func OptionalAuth(tokens TokenParser, users ActorLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, tokens)
		if !ok {
			c.Next()
			return
		}
		actor, err := resolveActor(c, users, claims)
		if err != nil && !apperr.Is(err, apperr.KindUnauthorized) {
			abortLookup(c, err)
			return
		}
		if err == nil {
			c.Set(actorKey, actor)
		}
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// ActorFrom returns the caller stored by the auth middleware, or authz.Anonymous.
func ActorFrom(c *gin.Context) authz.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(authz.Actor); ok {
			return a
		}
	}
	return authz.Anonymous
}

func resolveActor(c *gin.Context, users ActorLookup, claims *auth.Claims) (authz.Actor, error) {
	role, err := users.ActiveRole(c.Request.Context(), claims.UserID)
	if err != nil {
		return authz.Anonymous, err
	}
	return authz.Actor{UserID: claims.UserID, Role: role}, nil
}

func abortLookup(c *gin.Context, err error) {
	if apperr.Is(err, apperr.KindUnauthorized) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Message(err)})
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func bearerClaims(c *gin.Context, tokens TokenParser) (*auth.Claims, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return nil, false
	}
	claims, err := tokens.Parse(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
	if err != nil {
		return nil, false
	}
	return claims, true
}
