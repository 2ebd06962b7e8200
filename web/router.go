package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaos-io/bgremover/config"
	"github.com/chaos-io/bgremover/middleware"
)

const serviceName = "widget"

//go:embed templates/index.html
var templates embed.FS

func NewRouter(cfg config.WebConfig, h *Handler, logger *slog.Logger) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.Metrics(serviceName),
	)

	router.GET("/", h.Index)
	router.GET("/state", h.State)
	router.POST("/select", h.Select)
	router.GET("/preview/:id", h.Preview)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len(), "previews": h.store.Stats()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router, nil
}
