package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	configs "github.com/personality-predictor/backend/config"
	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/handler"
	"github.com/personality-predictor/backend/internal/middleware"
	"github.com/personality-predictor/backend/internal/repository"
	"github.com/personality-predictor/backend/internal/router"
	"github.com/personality-predictor/backend/internal/service"
	"github.com/personality-predictor/backend/pkg/cache"
	"github.com/personality-predictor/backend/pkg/circuit"
	"github.com/personality-predictor/backend/pkg/database"
	"github.com/personality-predictor/backend/pkg/health"
	"github.com/personality-predictor/backend/pkg/inference"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/mailer"
	"github.com/personality-predictor/backend/pkg/metrics"
	"github.com/personality-predictor/backend/pkg/oauth"
	"github.com/personality-predictor/backend/pkg/pool"
	"github.com/personality-predictor/backend/pkg/redis"
	"github.com/personality-predictor/backend/pkg/validation"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", constants.AppVersion),
	)

	if config.App.Environment == constants.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	db, err := database.NewPostgresDB(config, database.DefaultPool())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrated successfully")

	redisClient, err := redis.NewClient(config)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Outbound plumbing
	breakerConfig := circuit.DefaultConfig()
	breakerConfig.Threshold = config.Inference.FailureThreshold
	breakerConfig.Timeout = config.Inference.ResetTimeout
	breakerConfig.OnStateChange = func(name string, _, to circuit.State) {
		collector.RecordBreakerState(name, int(to))
	}
	breakers := circuit.NewBreakerRegistry(breakerConfig, log)
	connPool := pool.NewConnectionPool(pool.DefaultPoolConfig(), log)
	defer connPool.Close()

	inferenceClient := inference.NewClient(
		inference.Config{BaseURL: config.Inference.BaseURL, MaxRetries: config.Inference.MaxRetries},
		connPool.GetHTTPClient(inference.UpstreamName, config.Inference.Timeout),
		breakers.GetOrCreate(inference.UpstreamName),
		connPool,
	)

	sender, err := mailer.NewSender(config.Mail)
	if err != nil {
		log.Fatal("Failed to initialize mail sender", zap.Error(err))
	}
	accountMailer := mailer.New(sender, breakers.GetOrCreate(mailer.BreakerName), config.App.FrontendURL, constants.AppName)

	var states cache.Store
	var counter middleware.WindowCounter
	if redisClient.IsEnabled() {
		states = redisClient
		counter = redisClient
	} else {
		memory := cache.NewMemory(time.Minute)
		defer memory.Stop()
		states = memory
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// Services
	sanitizer := validation.NewSanitizer()
	jwtService := service.NewJWTService(config.JWT.Secret, config.JWT.ExpirationTime, config.App.Name)
	authService := service.NewAuthService(userRepo, jwtService, accountMailer, config.Token, collector)
	federatedService := service.NewFederatedService(
		oauthProviders(config, connPool),
		states,
		config.OAuth.StateTTL,
		userRepo,
		jwtService,
		config.App.FrontendURL,
		collector,
	)
	contactService := service.NewContactService(contactRepo, sanitizer)
	assessmentService := service.NewAssessmentService(inferenceClient, sanitizer)

	// Health
	monitor := health.NewMonitor(30*time.Second, log)
	registerHealthChecks(monitor, config, db, redisClient, connPool)
	monitor.Start()
	defer monitor.Stop()

	// HTTP
	generalLimiter, authLimiter := router.NewLimiters(config.RateLimit, counter)
	r := router.NewRouter(
		handler.NewAuthHandler(authService, config.App.Debug),
		handler.NewOAuthHandler(federatedService, config.App.Debug),
		handler.NewContactHandler(contactService, config.App.Debug),
		handler.NewAssessmentHandler(assessmentService, config.App.Debug),
		handler.NewHealthHandler(monitor, connPool),

		middleware.NewJWTMiddleware(authService),
		generalLimiter,
		authLimiter,

		collector,
		metrics.Handler(registry),
		config,
	).SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}

// oauthProviders registers the providers that have credentials configured.
func oauthProviders(config *configs.Config, connPool *pool.ConnectionPool) *oauth.Registry {
	var providers []oauth.Provider

	if google := config.OAuth.Google; google.Enabled() {
		providers = append(providers, oauth.NewGoogleProvider(oauth.Config{
			ClientID:     google.ClientID,
			ClientSecret: google.ClientSecret,
			RedirectURL:  google.CallbackURL,
			HTTPClient:   connPool.GetHTTPClient(constants.ProviderGoogle, 10*time.Second),
		}))
	} else {
		logger.GetLogger().Warn("Google OAuth credentials not set, provider disabled")
	}

	if facebook := config.OAuth.Facebook; facebook.Enabled() {
		providers = append(providers, oauth.NewFacebookProvider(oauth.Config{
			ClientID:     facebook.ClientID,
			ClientSecret: facebook.ClientSecret,
			RedirectURL:  facebook.CallbackURL,
			HTTPClient:   connPool.GetHTTPClient(constants.ProviderFacebook, 10*time.Second),
		}))
	} else {
		logger.GetLogger().Warn("Facebook OAuth credentials not set, provider disabled")
	}

	return oauth.NewRegistry(providers...)
}

// registerHealthChecks: the database is critical, redis and the inference
// API only degrade the report.
func registerHealthChecks(monitor *health.Monitor, config *configs.Config, db *gorm.DB, redisClient *redis.Client, connPool *pool.ConnectionPool) {
	monitor.Register("database", &health.PingChecker{
		Kind: "postgres",
		Ping: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}, true)

	if redisClient.IsEnabled() {
		monitor.Register("redis", &health.PingChecker{Kind: "redis", Ping: redisClient.Ping}, false)
	}

	monitor.RegisterHTTPChecker("inference", config.Inference.BaseURL, "/health",
		connPool.GetHTTPClient("inference-health", 5*time.Second), false)
}
