package handler

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/SergeiKhy/shortlink/internal/clock"
	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const metricsPath = "/metrics"

// Options параметры HTTP-слоя, не относящиеся к сервисам
type Options struct {
	BaseURL                string
	DefaultValidityMinutes int
	Location               *time.Location
	Clock                  clock.Clock
	// Metrics отдаётся на /metrics; nil - маршрут не регистрируется
	Metrics http.Handler
}

// ReservedCodes возвращает коды, которые перекрыты статическими маршрутами
// корня и поэтому не могут быть короткими ссылками
func ReservedCodes(opts Options) []string {
	if opts.Metrics == nil {
		return nil
	}
	return []string{strings.TrimPrefix(metricsPath, "/")}
}

func NewRouter(
	linkService service.LinkService,
	resolver service.Resolver,
	opts Options,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	)
	router.SetHTMLTemplate(pageTemplates)

	linkHandler := NewLinkHandler(linkService, resolver, opts, logger)

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck(linkService))
		v1.POST("/links", linkHandler.CreateLink)
		v1.GET("/links", linkHandler.ListLinks)
		v1.GET("/links/:code", linkHandler.GetLink)
		v1.GET("/links/:code/stats", linkHandler.GetStats)
		v1.GET("/links/:code/stats/daily", linkHandler.GetDailyStats)
	}

	if opts.Metrics != nil {
		router.GET(metricsPath, gin.WrapH(opts.Metrics))
	}

	// Страницы
	router.GET("/", linkHandler.Home)
	router.POST("/", linkHandler.Submit)
	router.GET("/stats/:code", linkHandler.Stats)

	// Редирект (корневой путь)
	router.GET("/:code", linkHandler.Redirect)

	// Всё остальное ведёт на главную
	router.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	return router
}
