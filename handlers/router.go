package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// RouterConfig holds what the HTTP layer is wired to
type RouterConfig struct {
	ServiceName   string
	Analysis      *AnalysisHandler
	Documents     *DocumentHandler
	Authenticator Authenticator
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
}

// NewRouter builds the gin engine with all routes
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(RequireAuth(cfg.Authenticator, logger))
	{
		api.POST("/documents", cfg.Documents.CreateDocument)
		api.GET("/documents", cfg.Documents.ListDocuments)
		api.GET("/documents/:id", cfg.Documents.GetDocument)

		api.POST("/analyses/stream", cfg.Analysis.StreamAnalysis)
		api.GET("/analyses/:id", cfg.Analysis.GetJobStatus)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
