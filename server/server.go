package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaos-io/bgremover/config"
	"github.com/chaos-io/bgremover/middleware"
	"github.com/chaos-io/bgremover/rembg"
)

const serviceName = "remove-bg"

// NewRemover picks the remover configured for the API.
func NewRemover(cfg config.ServerConfig, logger *slog.Logger) rembg.Remover {
	if cfg.Remover == "upstream" {
		return rembg.NewUpstreamRemBG(rembg.NewClient(cfg.UpstreamURL, rembg.WithLogger(logger)))
	}
	return rembg.NewColorKeyRemBG(
		rembg.WithTolerance(cfg.Tolerance),
		rembg.WithMaxSide(cfg.MaxSide),
	)
}

func NewRouter(cfg config.ServerConfig, h *Handler, logger *slog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.Metrics(serviceName),
		middleware.CORS(cfg.AllowedOrigins),
	)

	router.POST(rembg.EndpointPath, h.RemoveBG)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
