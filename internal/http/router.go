// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coachquote/internal/http/handlers"
	"coachquote/internal/http/middleware"
	"coachquote/internal/infra"
	"coachquote/internal/modules/ratetable"
)

type RouterDeps struct {
	Pricing  handlers.Estimator
	Quotes   handlers.QuoteService
	Rates    ratetable.Source
	Cache    handlers.Invalidator
	Verifier infra.TokenVerifier
	Metrics  prometheus.Gatherer
	Logger   *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Logging(logger), middleware.Recovery(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	staff := middleware.RequireRole(middleware.RoleSales, middleware.RoleAdmin)

	estimates := handlers.NewEstimateHandler(deps.Pricing)
	api.POST("/estimates", staff, estimates.Create)

	quotes := handlers.NewQuoteHandler(deps.Quotes)
	api.POST("/quotes", staff, quotes.Create)
	api.GET("/quotes/:id", quotes.Get)
	api.POST("/quotes/:id/send", staff, quotes.Send)
	api.POST("/quotes/:id/accept", quotes.Accept)
	api.POST("/quotes/:id/decline", quotes.Decline)

	admin := api.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	rates := handlers.NewRateTableHandler(deps.Rates, deps.Cache)
	admin.POST("/rate-tables/invalidate", rates.Invalidate)
	admin.GET("/rate-tables/validate", rates.Validate)

	return r
}
