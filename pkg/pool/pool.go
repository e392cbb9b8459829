package pool

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PoolConfig defines outbound HTTP connection pool configuration
type PoolConfig struct {
	ConnectionTimeout   time.Duration `json:"connection_timeout"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	IdleTimeout         time.Duration `json:"idle_timeout"`
	MaxIdleConns        int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
}

// DefaultPoolConfig returns sensible defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		ConnectionTimeout:   5 * time.Second,
		RequestTimeout:      30 * time.Second,
		IdleTimeout:         90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}
}

// BackendHealth tracks the outcome of calls made to one upstream.
type BackendHealth struct {
	Name         string    `json:"name"`
	IsHealthy    bool      `json:"is_healthy"`
	LastCheck    time.Time `json:"last_check"`
	LastError    string    `json:"last_error,omitempty"`
	FailureCount int       `json:"failure_count"`
	SuccessCount int       `json:"success_count"`
}

// ConnectionPool hands out one tuned *http.Client per upstream (inference
// API, OAuth providers) and keeps per-upstream call statistics.
type ConnectionPool struct {
	mu          sync.RWMutex
	httpClients map[string]*http.Client
	healthStats map[string]*BackendHealth
	config      PoolConfig
	logger      *zap.Logger
}

// NewConnectionPool creates a new connection pool
func NewConnectionPool(config PoolConfig, logger *zap.Logger) *ConnectionPool {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConnectionPool{
		httpClients: make(map[string]*http.Client),
		healthStats: make(map[string]*BackendHealth),
		config:      config,
		logger:      logger,
	}
}

// GetHTTPClient returns the client for name, creating it on first use.
// timeout overrides the pool's request timeout when positive.
func (p *ConnectionPool) GetHTTPClient(name string, timeout time.Duration) *http.Client {
	p.mu.RLock()
	client, exists := p.httpClients[name]
	p.mu.RUnlock()

	if exists {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists = p.httpClients[name]; exists {
		return client
	}

	if timeout <= 0 {
		timeout = p.config.RequestTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   p.config.ConnectionTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          p.config.MaxIdleConns,
		MaxIdleConnsPerHost:   p.config.MaxIdleConnsPerHost,
		IdleConnTimeout:       p.config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	client = &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	p.httpClients[name] = client
	p.healthStats[name] = &BackendHealth{
		Name:      name,
		IsHealthy: true,
		LastCheck: time.Now(),
	}

	p.logger.Info("Created new HTTP client",
		zap.String("upstream", name),
		zap.Duration("timeout", timeout),
	)

	return client
}

// RecordSuccess records a successful request to an upstream
func (p *ConnectionPool) RecordSuccess(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if health, exists := p.healthStats[name]; exists {
		health.IsHealthy = true
		health.SuccessCount++
		health.LastCheck = time.Now()
		health.LastError = ""
	}
}

// RecordFailure records a failed request to an upstream
func (p *ConnectionPool) RecordFailure(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if health, exists := p.healthStats[name]; exists {
		health.IsHealthy = false
		health.FailureCount++
		health.LastCheck = time.Now()
		if err != nil {
			health.LastError = err.Error()
		}
	}
}

// IsHealthy reports the last observed state of an upstream.
func (p *ConnectionPool) IsHealthy(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if health, exists := p.healthStats[name]; exists {
		return health.IsHealthy
	}
	return true
}

// GetHealthStats returns a snapshot of every tracked upstream.
func (p *ConnectionPool) GetHealthStats() map[string]BackendHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make(map[string]BackendHealth, len(p.healthStats))
	for name, health := range p.healthStats {
		stats[name] = *health
	}
	return stats
}

// Close releases idle connections of every client.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, client := range p.httpClients {
		client.CloseIdleConnections()
	}
}
