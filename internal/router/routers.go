package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/personality-predictor/backend/config"
	"github.com/personality-predictor/backend/internal/handler"
	"github.com/personality-predictor/backend/internal/middleware"
	"github.com/personality-predictor/backend/pkg/metrics"
)

type Router struct {
	authHandler       *handler.AuthHandler
	oauthHandler      *handler.OAuthHandler
	contactHandler    *handler.ContactHandler
	assessmentHandler *handler.AssessmentHandler
	healthHandler     *handler.HealthHandler

	jwtMw       *middleware.JWTMiddleware
	limiter     *middleware.RateLimiter
	authLimiter *middleware.RateLimiter

	recorder       metrics.Recorder
	metricsHandler http.Handler
	Config         *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	oauth *handler.OAuthHandler,
	contact *handler.ContactHandler,
	assessment *handler.AssessmentHandler,
	health *handler.HealthHandler,

	jwtMw *middleware.JWTMiddleware,
	limiter *middleware.RateLimiter,
	authLimiter *middleware.RateLimiter,

	recorder metrics.Recorder,
	metricsHandler http.Handler,
	config *config.Config,
) *Router {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Router{
		authHandler:       auth,
		oauthHandler:      oauth,
		contactHandler:    contact,
		assessmentHandler: assessment,
		healthHandler:     health,

		jwtMw:       jwtMw,
		limiter:     limiter,
		authLimiter: authLimiter,

		recorder:       recorder,
		metricsHandler: metricsHandler,
		Config:         config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.Metrics(r.recorder))
	router.Use(middleware.CORS(r.Config.App.AllowedOrigins))
	router.Use(middleware.ContextMiddleware("api", r.Config.App.Timeout))

	router.GET("/health", r.healthHandler.BasicHealth)
	if r.metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(r.metricsHandler))
	}

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)

		limited := api.Group("")
		if r.limiter != nil {
			limited.Use(r.limiter.Middleware())
		}
		{
			r.authRoutes(limited)
			r.contactRoutes(limited)
			r.assessmentRoutes(limited)
		}
	}

	return router
}

// rateLimitWindow converts the configured window in seconds.
func rateLimitWindow(seconds int) time.Duration {
	if seconds <= 0 {
		return time.Minute
	}
	return time.Duration(seconds) * time.Second
}

// NewLimiters builds the general limiter and the stricter one guarding
// credential endpoints.
func NewLimiters(cfg config.RateLimitConfig, counter middleware.WindowCounter) (general, auth *middleware.RateLimiter) {
	window := rateLimitWindow(cfg.Duration)
	general = middleware.NewRateLimiter("api", cfg.Request*5, window, counter)
	auth = middleware.NewRateLimiter("auth", cfg.Request, window, counter)
	return general, auth
}
