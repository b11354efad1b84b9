package onboarding

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/internal/notifications/websocket"
)

// LiveFeed upgrades HTTP requests into change-event streams
type LiveFeed interface {
	HandleConnection(w http.ResponseWriter, r *http.Request) (*websocket.Connection, error)
}

// Handler exposes one tracker session over HTTP
type Handler struct {
	tracker *Tracker
	feed    LiveFeed
	logger  *zap.Logger
}

// NewHandler creates a new onboarding handler. feed may be nil.
func NewHandler(tracker *Tracker, feed LiveFeed, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tracker: tracker,
		feed:    feed,
		logger:  logger,
	}
}

// RegisterRoutes registers onboarding routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	ob := rg.Group("/onboarding")
	{
		ob.GET("", h.getState)
		ob.GET("/steps", h.getSteps)
		ob.GET("/current", h.getCurrent)
		ob.POST("/steps/:id/complete", h.completeStep)
		ob.POST("/steps/:id/skip", h.skipStep)
		ob.POST("/advance", h.advance)
		ob.POST("/reset", h.reset)
		if h.feed != nil {
			ob.GET("/ws", h.subscribe)
		}
	}
}

func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.State())
}

func (h *Handler) getSteps(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Steps())
}

func (h *Handler) getCurrent(c *gin.Context) {
	step, ok := h.tracker.CurrentStep()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"done": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"done": false, "step": step})
}

func (h *Handler) completeStep(c *gin.Context) {
	res, err := h.tracker.CompleteStep(c.Param("id"))
	h.respond(c, res, err)
}

func (h *Handler) skipStep(c *gin.Context) {
	res, err := h.tracker.SkipStep(c.Param("id"))
	h.respond(c, res, err)
}

func (h *Handler) advance(c *gin.Context) {
	res, err := h.tracker.Advance()
	h.respond(c, res, err)
}

func (h *Handler) reset(c *gin.Context) {
	res, err := h.tracker.Reset()
	h.respond(c, res, err)
}

func (h *Handler) subscribe(c *gin.Context) {
	if _, err := h.feed.HandleConnection(c.Writer, c.Request); err != nil {
		h.logger.Warn("Failed to open onboarding feed", zap.Error(err))
	}
}

// respond writes a mutation outcome. Rejected mutations still carry the
// unchanged state so the caller can re-render.
func (h *Handler) respond(c *gin.Context, res Result, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrUnknownStep):
			status = http.StatusNotFound
		case errors.Is(err, ErrAlreadyTerminal):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "state": res.State})
		return
	}

	body := gin.H{"state": res.State}
	if res.Warning != nil {
		body["warning"] = res.Warning.Error()
	}
	c.JSON(http.StatusOK, body)
}
