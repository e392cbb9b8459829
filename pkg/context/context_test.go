package ctxutil

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewContextWithRequest_KeepsMiddlewareValues(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/auth/user/profile", nil)
	req.Header.Set("User-Agent", "ua-from-request")

	base := context.WithValue(context.Background(), ClientIPKey, "10.0.0.9")
	ctx := NewContextWithRequest(base, req, "handler", "GetProfile")

	assert.Equal(t, "handler", GetModule(ctx))
	assert.Equal(t, "GetProfile", GetFunction(ctx))
	assert.Equal(t, "10.0.0.9", GetClientIP(ctx))
	assert.Equal(t, "ua-from-request", GetUserAgent(ctx))
	assert.False(t, GetStartTime(ctx).IsZero())
}
