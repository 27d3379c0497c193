// Package handler exposes the service catalog over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"servicehub/backend/internal/catalog/domain"
	"servicehub/backend/internal/catalog/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler serves /services routes.
type Handler struct {
	repo repository.Repository
	log  *slog.Logger
}

// NewHandler returns a Handler backed by repo.
func NewHandler(repo repository.Repository, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log}
}

type serviceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"priceCents"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toResponse(s *domain.Service) serviceResponse {
	return serviceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Category:    s.Category,
		PriceCents:  s.PriceCents,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type serviceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PriceCents  *int64  `json:"priceCents"`
	Active      *bool   `json:"active"`
}

func (r serviceRequest) patch() domain.Patch {
	return domain.Patch{Name: r.Name, Description: r.Description, Category: r.Category, PriceCents: r.PriceCents, Active: r.Active}
}

// List returns a page of services.
func (h *Handler) List(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.internal(c, "catalog.list_failed", err)
		return
	}
	out := make([]serviceResponse, len(list))
	for i, s := range list {
		out[i] = toResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"services": out, "limit": limit, "offset": offset})
}

// Get returns the service with path id.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internal(c, "catalog.get_failed", err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(s))
}

// Create adds a service. New services are active unless the body says otherwise.
func (h *Handler) Create(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s := &domain.Service{Active: true}
	if err := req.patch().Apply(s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		h.writeError(c, "catalog.create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(s))
}

// Update applies a partial update to the service with path id.
func (h *Handler) Update(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	patch := req.patch()
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}
	ctx := c.Request.Context()
	s, err := h.repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		h.internal(c, "catalog.get_failed", err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	if err := patch.Apply(s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	found, err := h.repo.Update(ctx, s)
	if err != nil {
		h.writeError(c, "catalog.update_failed", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(s))
}

// Delete removes the service with path id.
func (h *Handler) Delete(c *gin.Context) {
	found, err := h.repo.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internal(c, "catalog.delete_failed", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, event string, err error) {
	if errors.Is(err, repository.ErrDuplicateName) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.internal(c, event, err)
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
