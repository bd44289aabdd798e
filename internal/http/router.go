package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/TekupDK/tekup-sub017/internal/config"
	"github.com/TekupDK/tekup-sub017/platform/httpkit"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

// NewRouter wires the gin engine with middleware and the pipeline routes.
func NewRouter(cfg *config.Config, h *Handler, log *logger.Logger) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(cors.New(corsConfig(cfg)))

	engine.GET("/api/health", h.Health)

	v1 := engine.Group("/api/v1")
	v1.POST("/leads/parse", h.ParseLead)
	v1.GET("/leads/:threadId", h.GetLead)
	v1.POST("/replies/generate", h.GenerateReply)
	v1.POST("/replies/approve", h.ApproveReply)
	v1.POST("/threads/ingest", h.IngestThread)
	v1.POST("/chat", h.Chat)

	return engine
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowAll {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	return corsCfg
}
