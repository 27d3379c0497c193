// Package handler exposes registration and login over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"servicehub/backend/internal/identity/credential"
	"servicehub/backend/internal/identity/domain"
	"servicehub/backend/internal/identity/service"
	"servicehub/backend/internal/provisioning"
	profilerepo "servicehub/backend/internal/profile/repository"
)

// Registrar provisions a new user. provisioning.Coordinator satisfies it.
type Registrar interface {
	Register(ctx context.Context, req provisioning.RegisterRequest) (string, error)
}

// Authenticator exchanges credentials for a token. service.AuthService satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.AccessToken, error)
}

// Handler serves /auth/register and /auth/login.
type Handler struct {
	registrar Registrar
	auth      Authenticator
	log       *slog.Logger
}

// NewHandler returns a Handler.
func NewHandler(registrar Registrar, auth Authenticator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{registrar: registrar, auth: auth, log: log}
}

type registerRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName string  `json:"displayName"`
	Surname1    string  `json:"surname1"`
	Surname2    *string `json:"surname2"`
	BirthDate   string  `json:"birthDate"`
}

// Register creates an identity and its profile.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.registrar.Register(c.Request.Context(), provisioning.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Surname1:    req.Surname1,
		Surname2:    req.Surname2,
		BirthDate:   req.BirthDate,
	})
	if err != nil {
		status, msg := registerError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user registered", "userId": id})
}

// registerError maps a provisioning failure to a status and a message prefixed with the
// store that failed.
func registerError(err error) (int, string) {
	var pe *provisioning.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, "internal error"
	}
	switch pe.Kind {
	case provisioning.InvalidInput:
		return http.StatusBadRequest, pe.Err.Error()
	case provisioning.IdentityCreationFailed:
		return http.StatusBadRequest, "identity provider: " + identityMessage(pe.Err)
	case provisioning.ProfileCreationFailed, provisioning.CompensationFailed:
		return http.StatusBadRequest, "profile store: " + profileMessage(pe.Err)
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func identityMessage(err error) string {
	switch {
	case errors.Is(err, credential.ErrEmailTaken):
		return credential.ErrEmailTaken.Error()
	case errors.Is(err, credential.ErrProviderUnavailable):
		return credential.ErrProviderUnavailable.Error()
	default:
		return "could not create identity"
	}
}

func profileMessage(err error) string {
	if errors.Is(err, profilerepo.ErrProfileExists) {
		return profilerepo.ErrProfileExists.Error()
	}
	return "could not create profile"
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login returns an access token for valid credentials.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tok, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"access_token": tok.Token,
			"token_type":   tok.TokenType,
			"expires_in":   tok.ExpiresIn,
		})
	case errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrProviderFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable"})
	default:
		h.log.ErrorContext(c.Request.Context(), "auth.login_error", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
