package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-caption-api-go/internal/middleware"
)

// RouterConfig wires handlers into the gin engine.
type RouterConfig struct {
	Captions *CaptionHandler
	Health   *HealthHandler
	Auth     *middleware.APIKeyAuth
	Metrics  http.Handler
	Logger   *zap.Logger

	// AuditLog exposes GET /api/v1/extractions/:videoId.
	AuditLog bool
}

// NewRouter builds the HTTP surface.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	auth := cfg.Auth
	if auth == nil {
		auth = middleware.NewAPIKeyAuth(nil, log)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log), middleware.CORS())

	r.GET("/", cfg.Health.Status)
	r.GET("/health/live", cfg.Health.LivenessProbe)
	r.GET("/health/ready", cfg.Health.ReadinessProbe)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/", auth.Handler())
	api.POST("/captions", cfg.Captions.ExtractCaptions)
	api.POST("/api/subtitles", cfg.Captions.ExtractCaptions)
	api.GET("/video/info", cfg.Captions.GetVideoInfo)
	api.GET("/api/video/info", cfg.Captions.GetVideoInfo)
	if cfg.AuditLog {
		api.GET("/api/v1/extractions/:videoId", cfg.Captions.ListExtractions)
	}

	return r
}
