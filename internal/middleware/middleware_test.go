package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personality-predictor/backend/internal/constants"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	"github.com/personality-predictor/backend/internal/model"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator struct {
	token string
	user  *model.User
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "db-down" {
		return nil, apperrors.WrapError(apperrors.ErrInternal, errors.New("connection refused"))
	}
	if token != s.token {
		return nil, apperrors.ErrInvalidToken
	}
	return s.user, nil
}

func TestRequireAuth(t *testing.T) {
	user := &model.User{Email: "ada@example.com"}
	user.ID = 42
	mw := NewJWTMiddleware(&stubAuthenticator{token: "good", user: user})

	r := gin.New()
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		id, _ := ctxutil.GetUserID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": c.GetUint(constants.GinKeyUserID), "ctx": id})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"rejected token", "Bearer bad", http.StatusUnauthorized},
		{"lookup failure", "Bearer db-down", http.StatusInternalServerError},
		{"valid token", "Bearer good", http.StatusOK},
		{"scheme is case insensitive", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			switch tt.want {
			case http.StatusOK:
				assert.JSONEq(t, `{"gin":42,"ctx":42}`, w.Body.String())
			case http.StatusInternalServerError:
				assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())
			default:
				assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	newRouter := func(origins []string) *gin.Engine {
		r := gin.New()
		r.Use(CORS(origins))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	t.Run("wildcard when unconfigured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "http://anything.test")
		w := httptest.NewRecorder()
		newRouter(nil).ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("echoes allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		newRouter([]string{"http://localhost:3000"}).ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("omits unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "http://evil.test")
		w := httptest.NewRecorder()
		newRouter([]string{"http://localhost:3000"}).ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		w := httptest.NewRecorder()
		newRouter(nil).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.counts[key]++
	return f.counts[key], window, nil
}

func rateLimitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_SharedCounter(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	r := rateLimitedRouter(NewRateLimiter("auth", 2, time.Minute, counter))

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)

	w := hit(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get(constants.HeaderRetryAfter))

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.2").Code)
	assert.Equal(t, int64(3), counter.counts[constants.CacheKeyRateLimit+"auth:10.0.0.1"])
}

func TestRateLimiter_LocalFallback(t *testing.T) {
	rl := NewRateLimiter("auth", 2, time.Minute, &fakeCounter{err: errors.New("redis down")})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	r := rateLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1").Code)

	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
}

func TestContextMiddleware_PropagatesIDs(t *testing.T) {
	r := gin.New()
	r.Use(ContextMiddleware("api", time.Second))
	r.GET("/x", func(c *gin.Context) {
		ctx := c.Request.Context()
		_, hasDeadline := ctx.Deadline()
		c.JSON(http.StatusOK, gin.H{
			"request_id":     ctxutil.GetRequestID(ctx),
			"correlation_id": ctxutil.GetCorrelationID(ctx),
			"deadline":       hasDeadline,
		})
	})

	t.Run("keeps caller ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(constants.HeaderXRequestID, "req-1")
		req.Header.Set(constants.HeaderXCorrelationID, "corr-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.JSONEq(t, `{"request_id":"req-1","correlation_id":"corr-1","deadline":true}`, w.Body.String())
		assert.Equal(t, "req-1", w.Header().Get(constants.HeaderXRequestID))
	})

	t.Run("generates ids", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		id := w.Header().Get(constants.HeaderXRequestID)
		require.Len(t, id, 36)
		assert.Equal(t, id, w.Header().Get(constants.HeaderXCorrelationID))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())
}

type recordedRequest struct {
	method, route string
	status        int
}

type stubRecorder struct{ requests []recordedRequest }

func (s *stubRecorder) RecordRequest(method, route string, status int, _ time.Duration) {
	s.requests = append(s.requests, recordedRequest{method, route, status})
}
func (s *stubRecorder) RecordAuthEvent(string, bool)   {}
func (s *stubRecorder) RecordBreakerState(string, int) {}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := &stubRecorder{}
	r := gin.New()
	r.Use(Metrics(rec))
	r.GET("/api/assessment/:session/question", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/assessment/abc/question", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, rec.requests, 2)
	assert.Equal(t, recordedRequest{"GET", "/api/assessment/:session/question", 200}, rec.requests[0])
	assert.Equal(t, recordedRequest{"GET", "", 404}, rec.requests[1])
}
