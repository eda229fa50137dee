package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/identity"
)

const (
	identityKey = "identity"
	partnerKey  = "partner"

	headerPartnerKey    = "X-Partner-Key"
	headerPartnerSecret = "X-Partner-Secret"
)

// PartnerStore authenticates partner API calls.
type PartnerStore interface {
	PartnerByKey(ctx context.Context, apiKey string) (*domain.Partner, error)
}

// OptionalAuth attaches a verified identity when a bearer token is present.
// Anonymous requests pass through untouched; a token that is present but
// invalid is rejected rather than silently downgraded.
func OptionalAuth(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		ident, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		ident, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// PartnerAuth authenticates partner traffic with the key+secret header
// pair. The stored secret is a bcrypt hash; key lookup and secret check
// both fail with the same 401 so callers cannot probe for valid keys.
func PartnerAuth(partners PartnerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(headerPartnerKey)
		secret := c.GetHeader(headerPartnerSecret)
		if key == "" || secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "partner credentials required"})
			return
		}

		partner, err := partners.PartnerByKey(c.Request.Context(), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid partner credentials"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(partner.SecretHash), []byte(secret)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid partner credentials"})
			return
		}

		c.Set(partnerKey, partner)
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

func identityFrom(c *gin.Context) *identity.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	ident, ok := value.(*identity.Identity)
	if !ok {
		return nil
	}
	return ident
}

func partnerFrom(c *gin.Context) *domain.Partner {
	value, ok := c.Get(partnerKey)
	if !ok {
		return nil
	}
	partner, ok := value.(*domain.Partner)
	if !ok {
		return nil
	}
	return partner
}
