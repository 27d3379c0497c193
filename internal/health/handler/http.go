package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTP serves /healthz and /readyz.
type HTTP struct {
	checker *Checker
	log     *slog.Logger
}

// NewHTTP returns the HTTP health handlers.
func NewHTTP(checker *Checker, log *slog.Logger) *HTTP {
	if log == nil {
		log = slog.Default()
	}
	return &HTTP{checker: checker, log: log}
}

// Liveness always answers 200 while the process serves requests.
func (h *HTTP) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness answers 503 when the database or the policy engine is unhealthy.
func (h *HTTP) Readiness(c *gin.Context) {
	if err := h.checker.Ready(c.Request.Context()); err != nil {
		h.log.WarnContext(c.Request.Context(), "health.not_ready", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
