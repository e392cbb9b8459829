package pool

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPClient_ReusesClientPerUpstream(t *testing.T) {
	p := NewConnectionPool(DefaultPoolConfig(), nil)
	defer p.Close()

	a := p.GetHTTPClient("inference", 0)
	b := p.GetHTTPClient("inference", time.Minute)
	c := p.GetHTTPClient("google", 5*time.Second)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, DefaultPoolConfig().RequestTimeout, a.Timeout)
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestHealthStats(t *testing.T) {
	p := NewConnectionPool(DefaultPoolConfig(), nil)
	p.GetHTTPClient("inference", 0)

	assert.True(t, p.IsHealthy("inference"))
	assert.True(t, p.IsHealthy("untracked"))

	p.RecordFailure("inference", errors.New("dial tcp: timeout"))
	assert.False(t, p.IsHealthy("inference"))

	stats := p.GetHealthStats()
	assert.Equal(t, 1, stats["inference"].FailureCount)
	assert.Equal(t, "dial tcp: timeout", stats["inference"].LastError)

	p.RecordSuccess("inference")
	assert.True(t, p.IsHealthy("inference"))
	assert.Equal(t, "", p.GetHealthStats()["inference"].LastError)
}

func TestGetHealthStats_ReturnsCopies(t *testing.T) {
	p := NewConnectionPool(DefaultPoolConfig(), nil)
	p.GetHTTPClient("facebook", 0)

	stats := p.GetHealthStats()
	s := stats["facebook"]
	s.FailureCount = 99

	assert.Equal(t, 0, p.GetHealthStats()["facebook"].FailureCount)
}
