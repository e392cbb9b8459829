package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// PerformanceConfig controls which request-scoped logs are written.
type PerformanceConfig struct {
	MinLogLevel     zapcore.Level `json:"min_log_level"`
	MaxLogPerSecond int           `json:"max_log_per_second"`
	EnableRateLimit bool          `json:"enable_rate_limit"`
}

func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.InfoLevel,
		MaxLogPerSecond: 1000,
	}
}

func ProductionConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.InfoLevel,
		MaxLogPerSecond: 500,
		EnableRateLimit: true,
	}
}

func DevelopmentConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.DebugLevel,
		MaxLogPerSecond: 10000,
	}
}

// OptimizedLogger filters by level and, in production, caps non-error volume.
type OptimizedLogger struct {
	config  PerformanceConfig
	logger  *zap.Logger
	limiter *rate.Limiter
}

func NewOptimizedLogger(config PerformanceConfig, base *zap.Logger) *OptimizedLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &OptimizedLogger{
		config:  config,
		logger:  base,
		limiter: rate.NewLimiter(rate.Limit(config.MaxLogPerSecond), config.MaxLogPerSecond),
	}
}

// ShouldLog reports whether a message at level should be written.
// Errors are never dropped by the rate limiter.
func (ol *OptimizedLogger) ShouldLog(level zapcore.Level) bool {
	if level < ol.config.MinLogLevel {
		return false
	}
	if ol.config.EnableRateLimit && level < zapcore.ErrorLevel && !ol.limiter.Allow() {
		return false
	}
	return true
}

var (
	optimizedLogger *OptimizedLogger
	optimizedMu     sync.Mutex
)

func SetOptimizedLogger(l *OptimizedLogger) {
	optimizedMu.Lock()
	defer optimizedMu.Unlock()
	optimizedLogger = l
}

// GetOptimizedLogger returns the shared logger, building a stdout fallback
// when InitLogger has not run (tests, tools).
func GetOptimizedLogger() *OptimizedLogger {
	optimizedMu.Lock()
	defer optimizedMu.Unlock()

	if optimizedLogger == nil {
		config := DefaultPerformanceConfig()
		if os.Getenv("APP_ENV") == "production" {
			config = ProductionConfig()
		}

		zapConfig := zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(config.MinLogLevel)
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		zapConfig.DisableStacktrace = true

		base, err := zapConfig.Build(zap.WithCaller(false))
		if err != nil {
			base = zap.NewNop()
		}
		optimizedLogger = NewOptimizedLogger(config, base)
	}
	return optimizedLogger
}
