// Package handler exposes profiles over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"servicehub/backend/internal/profile/domain"
	"servicehub/backend/internal/profile/repository"
	"servicehub/backend/internal/server/middleware"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler serves profile routes. Authorization is enforced by middleware before it runs.
type Handler struct {
	repo repository.Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewHandler returns a Handler backed by repo.
func NewHandler(repo repository.Repository, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log, now: time.Now}
}

type profileResponse struct {
	IdentityID  string    `json:"identityId"`
	DisplayName string    `json:"displayName"`
	Surname1    string    `json:"surname1"`
	Surname2    *string   `json:"surname2,omitempty"`
	BirthDate   string    `json:"birthDate"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		IdentityID:  p.IdentityID,
		DisplayName: p.DisplayName,
		Surname1:    p.Surname1,
		Surname2:    p.Surname2,
		BirthDate:   p.BirthDate.Format(domain.BirthDateLayout),
		Email:       p.Email,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// List returns a page of profiles.
func (h *Handler) List(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.internal(c, "profile.list_failed", err)
		return
	}
	out := make([]profileResponse, len(list))
	for i, p := range list {
		out[i] = toResponse(p)
	}
	c.JSON(http.StatusOK, gin.H{"profiles": out, "limit": limit, "offset": offset})
}

// Get returns the profile with path id.
func (h *Handler) Get(c *gin.Context) {
	p, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internal(c, "profile.get_failed", err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

// Me returns the caller's own profile.
func (h *Handler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	h.own(c, id.ID)
}

// OwnProfile returns the profile of path id, which the access middleware has checked is the caller.
func (h *Handler) OwnProfile(c *gin.Context) {
	h.own(c, c.Param("id"))
}

func (h *Handler) own(c *gin.Context, identityID string) {
	ctx := c.Request.Context()
	p, err := h.repo.GetByID(ctx, identityID)
	if err != nil {
		h.internal(c, "profile.get_failed", err)
		return
	}
	if p == nil {
		// Provisioning guarantees a profile per identity; a miss means a partial failure.
		h.log.WarnContext(ctx, "profile.missing_for_identity",
			slog.String("identity_id", identityID),
			slog.String("request_id", middleware.RequestIDFromContext(ctx)),
		)
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

type updateRequest struct {
	DisplayName *string `json:"displayName"`
	Surname1    *string `json:"surname1"`
	Surname2    *string `json:"surname2"`
	BirthDate   *string `json:"birthDate"`
}

// Update applies a partial update to the profile with path id.
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	patch := domain.Patch{DisplayName: req.DisplayName, Surname1: req.Surname1, Surname2: req.Surname2}
	if req.BirthDate != nil {
		d, err := domain.ParseBirthDate(*req.BirthDate, h.now())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.BirthDate = &d
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	ctx := c.Request.Context()
	p, err := h.repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		h.internal(c, "profile.get_failed", err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if err := patch.Apply(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	found, err := h.repo.Update(ctx, p)
	if err != nil {
		h.internal(c, "profile.update_failed", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

// Delete removes the profile with path id.
func (h *Handler) Delete(c *gin.Context) {
	found, err := h.repo.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internal(c, "profile.delete_failed", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) internal(c *gin.Context, event string, err error) {
	h.log.ErrorContext(c.Request.Context(), event, slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func pagination(c *gin.Context) (int, int, error) {
	limit, offset := defaultLimit, 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		limit = min(n, maxLimit)
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}
