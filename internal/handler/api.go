package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rdsxdev/misinfo-bot/internal/models"
)

// MessageProcessor runs the per-message pipeline.
type MessageProcessor interface {
	Process(ctx context.Context, in models.InboundMessage) (string, error)
}

// RecordReader serves the operator endpoints over persisted records.
type RecordReader interface {
	ListRecent(limit int) ([]*models.MessageRecord, error)
	Stats() (map[string]interface{}, error)
}

// Handler handles HTTP requests. records is nil when the store was
// unavailable at startup; the operator endpoints then answer 503 while the
// webhook keeps working.
type Handler struct {
	processor MessageProcessor
	records   RecordReader
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(processor MessageProcessor, records RecordReader, logger *zap.Logger) *Handler {
	return &Handler{
		processor: processor,
		records:   records,
		logger:    logger,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/webhook", h.Webhook)
	r.GET("/health", h.HealthCheck)
	r.GET("/", h.Root)

	api := r.Group("/api/v1")
	{
		api.GET("/messages", h.GetRecentMessages)
		api.GET("/messages/stats", h.GetStats)
	}
}

// Webhook handles one inbound message delivery. Twilio posts the payload as
// form-encoded fields.
func (h *Handler) Webhook(c *gin.Context) {
	from := c.PostForm("From")
	if from == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "From is required"})
		return
	}

	in := models.InboundMessage{
		From:     from,
		Body:     c.PostForm("Body"),
		NumMedia: c.DefaultPostForm("NumMedia", "0"),
		MediaURL: c.PostForm("MediaUrl0"),
	}
	if in.NumMedia == "" {
		in.NumMedia = "0"
	}

	reply, err := h.processor.Process(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("Failed to process message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "processed",
		"reply":  reply,
	})
}

// GetRecentMessages returns the most recent anonymized records.
func (h *Handler) GetRecentMessages(c *gin.Context) {
	if h.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}

	records, err := h.records.ListRecent(50)
	if err != nil {
		h.logger.Error("Failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": records,
		"total":    len(records),
	})
}

// GetStats returns record statistics.
func (h *Handler) GetStats(c *gin.Context) {
	if h.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}

	stats, err := h.records.Stats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// HealthCheck is the liveness probe.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Root answers the base path.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
