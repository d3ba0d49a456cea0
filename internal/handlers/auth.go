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

	"backend/internal/auth"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func Register(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if strings.TrimSpace(req.Password) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := svc.Register(ctx, req.Email, req.Password, req.Username)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrEmailTaken):
				log.Println("[AUTH] [ERROR] register email exists:", req.Email)
				c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			case errors.Is(err, auth.ErrUsernameTaken):
				log.Println("[AUTH] [ERROR] register username exists:", req.Username)
				c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			case errors.Is(err, auth.ErrUserCapacity):
				log.Println("[AUTH] [ERROR] register user limit reached")
				c.JSON(http.StatusConflict, gin.H{"error": "registration is closed"})
			default:
				log.Println("[AUTH] [ERROR] register failed:", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			}
			return
		}

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

func Login(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pair, user, err := svc.Login(ctx, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				log.Println("[AUTH] [ERROR] login invalid credentials")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			log.Println("[AUTH] [ERROR] login failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		log.Println("[AUTH] [INFO] login succeeded:", user.Email)
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
			"expiresIn":    pair.ExpiresIn,
			"user": gin.H{
				"id":       user.ID.Hex(),
				"email":    user.Email,
				"username": user.Username,
			},
		})
	}
}

func Refresh(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		plain := strings.TrimSpace(req.RefreshToken)
		if plain == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
			return
		}

		accountID, err := svc.VerifyRefresh(plain)
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh token verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pair, err := svc.Refresh(ctx, accountID, plain)
		if err != nil {
			if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrTokenInvalid) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
				return
			}
			log.Println("[AUTH] [ERROR] refresh failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
			return
		}

		log.Println("[AUTH] [INFO] refresh token rotated")
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
			"expiresIn":    pair.ExpiresIn,
		})
	}
}

func Logout(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := currentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.Logout(ctx, identity.ID); err != nil {
			log.Println("[AUTH] [ERROR] logout failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}

		log.Println("[AUTH] [INFO] user logged out:", identity.Email)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := currentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": identity})
	}
}

func currentIdentity(c *gin.Context) (*auth.Identity, bool) {
	value, ok := c.Get("identity")
	if !ok {
		log.Println("[AUTH] [ERROR] identity missing in context")
		return nil, false
	}
	identity, ok := value.(*auth.Identity)
	return identity, ok
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
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
