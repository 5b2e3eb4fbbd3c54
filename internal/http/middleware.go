package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"player-manager/internal/auth"
	"player-manager/internal/domain"
)

const identityKey = "identity"

// requireAuth rejects requests without a valid bearer token and stashes the
// verified identity in the gin context. The token's subject must still exist
// and be active.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		identity, err := h.tokens.Verify(c.Request.Context(), token)
		if err != nil {
			h.abortWithError(c, err)
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), identity.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				err = domain.ErrInvalidToken
			}
			h.abortWithError(c, err)
			return
		}
		if !user.IsActive {
			h.abortWithError(c, domain.ErrInvalidToken)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentIdentity(c *gin.Context) *auth.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(*auth.Identity)
	return identity
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
