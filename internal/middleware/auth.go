package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bajar/internal/token"
	"bajar/internal/users"
)

const identityKey = "identity"

// Identity is the request-scoped subject resolved by Protect. It is a
// typed context value; downstream handlers never touch raw claims.
type Identity struct {
	ID      primitive.ObjectID
	Name    string
	Email   string
	IsAdmin bool
}

// IdentityFrom returns the identity Protect attached to the request.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}

// Protect authenticates the request with the bearer access token and
// attaches the resolved identity. Access tokens are stateless — only
// the signature and expiry are checked, plus an existence check against
// the user store so a deleted account stops authenticating immediately.
func Protect(codec *token.Codec, userStore users.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			log.Println("[AUTH] [ERROR] missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "no token"})
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Println("[AUTH] [ERROR] invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token failed"})
			return
		}

		subject, err := codec.VerifyAccessToken(parts[1])
		if err != nil {
			log.Println("[AUTH] [ERROR] access token verification failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token failed"})
			return
		}

		userID, err := primitive.ObjectIDFromHex(subject)
		if err != nil {
			log.Println("[AUTH] [ERROR] invalid subject claim")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token failed"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := userStore.FindByID(ctx, userID)
		if errors.Is(err, users.ErrNotFound) {
			log.Println("[AUTH] [ERROR] subject no longer exists:", subject)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] user lookup failed:", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
			return
		}

		c.Set(identityKey, Identity{
			ID:      user.ID,
			Name:    user.Name,
			Email:   user.Email,
			IsAdmin: user.IsAdmin,
		})
		c.Next()
	}
}

// Admin requires Protect to have run and the identity to carry the
// admin flag.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "no token"})
			return
		}
		if !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin access required"})
			return
		}
		c.Next()
	}
}
