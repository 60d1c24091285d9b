package delivery

import (
	"context"
	"io"
	"net/http"
	"time"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxPostbackBodyBytes = 1 << 20

// PostbackHandler is the postback pipeline behind /webhook.
type PostbackHandler interface {
	HandlePostback(ctx context.Context, raw domain.RawPayload) domain.DeliveryOutcome
}

// handles HTTP requests
type HTTPHandlers struct {
	postbacks PostbackHandler
	banner    string
	logger    *logger.Logger
}

// creates new HTTP handlers
func NewHTTPHandlers(postbacks PostbackHandler, banner string, logger *logger.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		postbacks: postbacks,
		banner:    banner,
		logger:    logger,
	}
}

// Root reports that the service is up.
func (h *HTTPHandlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": h.banner,
	})
}

// Webhook accepts a tracker postback on GET or POST. The answer is always 200;
// a failed delivery is reported in the body so the tracker does not retry.
func (h *HTTPHandlers) Webhook(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(c.Request.Body, maxPostbackBodyBytes))
		if err != nil {
			log.WithError(err).Warn("Failed to read postback body")
			body = nil
		}
	}

	outcome := h.postbacks.HandlePostback(ctx, domain.RawPayload{
		Method:      c.Request.Method,
		Query:       c.Request.URL.Query(),
		ContentType: c.GetHeader("Content-Type"),
		Body:        body,
	})

	if !outcome.OK {
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"details": outcome.Details,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "postbackbot",
		"version":    "1.0.0",
		"request_id": c.GetString("request_id"),
	})
}
