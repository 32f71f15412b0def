package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bajar/internal/config"
	"bajar/internal/middleware"
	"bajar/internal/session"
	"bajar/internal/users"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates the account, then issues a credential pair exactly
// like login: access token in the body, refresh token in the cookie.
func Register(userStore users.Store, sessions *session.Manager, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := userStore.Create(ctx, req.Name, req.Email, req.Password)
		if errors.Is(err, users.ErrEmailTaken) {
			log.Println("[AUTH] [ERROR] register email exists:", req.Email)
			c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] register failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
			return
		}

		creds, err := sessions.Issue(ctx, user.ID)
		if err != nil {
			log.Println("[AUTH] [ERROR] register token issuance failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "token generation failed"})
			return
		}

		setRefreshCookie(c, cfg, creds.RefreshToken)
		log.Println("[AUTH] [INFO] user registered:", user.Email)
		c.JSON(http.StatusCreated, gin.H{
			"id":          user.ID.Hex(),
			"name":        user.Name,
			"email":       user.Email,
			"isAdmin":     user.IsAdmin,
			"accessToken": creds.AccessToken,
			"expiresIn":   creds.ExpiresIn,
		})
	}
}

func Login(userStore users.Store, sessions *session.Manager, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := userStore.VerifyCredentials(ctx, req.Email, req.Password)
		if errors.Is(err, users.ErrInvalidCredentials) {
			log.Println("[AUTH] [ERROR] login invalid credentials")
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid email or password"})
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] login user lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
			return
		}

		creds, err := sessions.Issue(ctx, user.ID)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token issuance failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "token generation failed"})
			return
		}

		setRefreshCookie(c, cfg, creds.RefreshToken)
		log.Println("[AUTH] [INFO] login succeeded:", user.Email)
		c.JSON(http.StatusOK, gin.H{
			"id":          user.ID.Hex(),
			"name":        user.Name,
			"email":       user.Email,
			"isAdmin":     user.IsAdmin,
			"accessToken": creds.AccessToken,
			"expiresIn":   creds.ExpiresIn,
		})
	}
}

// Refresh rotates the grant carried by the refresh cookie. Any
// credential failure is a 401 and terminal for this session; the
// client's only recovery is a new login. Storage failures are 500 and
// say nothing about the grant's validity.
func Refresh(userStore users.Store, sessions *session.Manager, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented, err := c.Cookie(cfg.Session.CookieName)
		if err != nil || strings.TrimSpace(presented) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "no refresh token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		creds, userID, err := sessions.Refresh(ctx, presented)
		if errors.Is(err, session.ErrUnauthorized) {
			log.Println("[AUTH] [ERROR] refresh rejected:", err)
			c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh storage failure:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
			return
		}

		user, err := userStore.FindByID(ctx, userID)
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh user lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
			return
		}

		setRefreshCookie(c, cfg, creds.RefreshToken)
		c.JSON(http.StatusOK, gin.H{
			"accessToken": creds.AccessToken,
			"expiresIn":   creds.ExpiresIn,
			"id":          user.ID.Hex(),
			"name":        user.Name,
			"email":       user.Email,
		})
	}
}

// Logout revokes the current grant server-side and clears the cookie.
// It never fails visibly: revoking an unknown, rotated or expired
// token is the normal outcome of an idempotent logout.
func Logout(sessions *session.Manager, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if presented, err := c.Cookie(cfg.Session.CookieName); err == nil && strings.TrimSpace(presented) != "" {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			if err := sessions.Revoke(ctx, presented); err != nil {
				log.Println("[AUTH] [WARN] logout revoke skipped:", err)
			}
		}

		clearRefreshCookie(c, cfg)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// Me returns the identity the request gate resolved.
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "no token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      identity.ID.Hex(),
			"name":    identity.Name,
			"email":   identity.Email,
			"isAdmin": identity.IsAdmin,
		})
	}
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
