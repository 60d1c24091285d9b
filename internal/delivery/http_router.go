package delivery

import (
	"net/http"
	"time"

	"postbackbot/internal/delivery/middleware"
	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type HTTPRouter struct {
	handlers       *HTTPHandlers
	logger         *logger.Logger
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	requestTimeout time.Duration
}

func NewHTTPRouter(handlers *HTTPHandlers, logger *logger.Logger, metrics *metrics.Metrics, gatherer prometheus.Gatherer, requestTimeout time.Duration) *HTTPRouter {
	return &HTTPRouter{
		handlers:       handlers,
		logger:         logger,
		metrics:        metrics,
		gatherer:       gatherer,
		requestTimeout: requestTimeout,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.Deadline(r.requestTimeout))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	router.GET("/", r.handlers.Root)
	router.GET("/health", r.handlers.HealthCheck)

	// Tracker postbacks
	router.Match([]string{http.MethodGet, http.MethodPost}, "/webhook", r.handlers.Webhook)

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler(r.gatherer))

	return router
}
