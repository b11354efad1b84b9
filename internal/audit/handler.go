package audit

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Format is one downloadable rendering of the audit trail
type Format struct {
	ContentType string
	Extension   string
	Write       func(w io.Writer, title string, entries []*Entry) error
}

// Handler serves the audit trail of one session
type Handler struct {
	repo       Repository
	sessionKey string
	formats    map[string]Format
	logger     *zap.Logger
}

// NewHandler creates a new audit handler. formats is keyed by the
// ?format= value accepted by the export route.
func NewHandler(repo Repository, sessionKey string, formats map[string]Format, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:       repo,
		sessionKey: sessionKey,
		formats:    formats,
		logger:     logger,
	}
}

// RegisterRoutes registers audit routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/onboarding/audit")
	{
		g.GET("", h.listEntries)
		g.GET("/export", h.exportEntries)
	}
}

func (h *Handler) listEntries(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxListLimit)})
			return
		}
		limit = n
	}

	entries, err := h.repo.List(c.Request.Context(), h.sessionKey, limit)
	if err != nil {
		h.logger.Error("Failed to list audit entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_key": h.sessionKey,
		"entries":     entries,
		"count":       len(entries),
	})
}

func (h *Handler) exportEntries(c *gin.Context) {
	name := c.DefaultQuery("format", "xlsx")
	format, ok := h.formats[name]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported export format %q", name)})
		return
	}

	entries, err := h.repo.List(c.Request.Context(), h.sessionKey, 0)
	if err != nil {
		h.logger.Error("Failed to list audit entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}

	filename := fmt.Sprintf("onboarding-%s-%s.%s", h.sessionKey, time.Now().UTC().Format("20060102"), format.Extension)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", format.ContentType)
	c.Status(http.StatusOK)

	title := fmt.Sprintf("Onboarding history: %s", h.sessionKey)
	if err := format.Write(c.Writer, title, entries); err != nil {
		h.logger.Error("Failed to export audit entries", zap.String("format", name), zap.Error(err))
	}
}
