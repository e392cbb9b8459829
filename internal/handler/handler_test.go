package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/dto"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	"github.com/personality-predictor/backend/internal/middleware"
	"github.com/personality-predictor/backend/internal/model"
	"github.com/personality-predictor/backend/internal/service"
	"github.com/personality-predictor/backend/pkg/health"
	"github.com/personality-predictor/backend/pkg/inference"
	"github.com/personality-predictor/backend/pkg/pool"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type stubAuth struct {
	signupErr    error
	loginErr     error
	resetErr     error
	verifyErr    error
	forgotEmail  string
	resendEmail  string
	verifyEmail  string
	verifyToken  string
	profileCalls []uint
}

func (s *stubAuth) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	if s.signupErr != nil {
		return nil, s.signupErr
	}
	return &dto.SignupResponse{ID: 1, Name: req.Name, Email: req.Email, Message: constants.MsgSignupSuccess}, nil
}

func (s *stubAuth) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &dto.LoginResponse{ID: 1, Email: req.Email, Token: "jwt"}, nil
}

func (s *stubAuth) ForgotPassword(ctx context.Context, email string) { s.forgotEmail = email }

func (s *stubAuth) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	return s.resetErr
}

func (s *stubAuth) VerifyEmail(ctx context.Context, email, token string) error {
	s.verifyEmail, s.verifyToken = email, token
	return s.verifyErr
}

func (s *stubAuth) ResendVerification(ctx context.Context, email string) { s.resendEmail = email }

func (s *stubAuth) Profile(ctx context.Context, userID uint) (*dto.ProfileResponse, error) {
	s.profileCalls = append(s.profileCalls, userID)
	return &dto.ProfileResponse{ID: userID, Name: "Ada", Email: "ada@example.com"}, nil
}

func authRouter(auth *stubAuth, debug bool) *gin.Engine {
	h := NewAuthHandler(auth, debug)
	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/forgot", h.ForgotPassword)
	r.POST("/reset", h.ResetPassword)
	r.GET("/verify", h.VerifyEmail)
	r.POST("/resend", h.ResendVerification)
	r.GET("/profile", func(c *gin.Context) {
		if c.Query("as") != "" {
			c.Set(constants.GinKeyUserID, uint(7))
		}
	}, h.Profile)
	return r
}

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		w := doJSON(authRouter(&stubAuth{}, false), http.MethodPost, "/signup",
			`{"name":"Ada","email":"ada@example.com","password":"secret1"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.Equal(t, "ada@example.com", body["email"])
		assert.NotContains(t, body, "token")
	})

	t.Run("short password", func(t *testing.T) {
		w := doJSON(authRouter(&stubAuth{}, false), http.MethodPost, "/signup",
			`{"name":"Ada","email":"ada@example.com","password":"12345"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Password must be at least 6 characters long", decode(t, w)["message"])
	})

	t.Run("blank name", func(t *testing.T) {
		w := doJSON(authRouter(&stubAuth{}, false), http.MethodPost, "/signup",
			`{"name":"   ","email":"ada@example.com","password":"secret1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		details := decode(t, w)["details"].([]any)
		assert.Equal(t, "name", details[0].(map[string]any)["field"])
	})

	t.Run("malformed json", func(t *testing.T) {
		w := doJSON(authRouter(&stubAuth{}, false), http.MethodPost, "/signup", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, constants.MsgBadRequest, decode(t, w)["message"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := doJSON(authRouter(&stubAuth{signupErr: apperrors.ErrEmailExists}, false), http.MethodPost, "/signup",
			`{"name":"Ada","email":"ada@example.com","password":"secret1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User already exists", decode(t, w)["message"])
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{"success", nil, http.StatusOK, ""},
		{"bad credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"unverified", apperrors.ErrEmailNotVerified, http.StatusForbidden, "Please verify your email before logging in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(authRouter(&stubAuth{loginErr: tt.err}, false), http.MethodPost, "/login",
				`{"email":"ada@example.com","password":"secret1"}`)

			assert.Equal(t, tt.want, w.Code)
			body := decode(t, w)
			if tt.err == nil {
				assert.Equal(t, "jwt", body["token"])
			} else {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}
}

func TestAuthHandler_InternalErrorsHiddenUnlessDebug(t *testing.T) {
	err := apperrors.WrapError(apperrors.ErrInternal, assert.AnError)

	w := doJSON(authRouter(&stubAuth{loginErr: err}, false), http.MethodPost, "/login",
		`{"email":"ada@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())

	w = doJSON(authRouter(&stubAuth{loginErr: err}, true), http.MethodPost, "/login",
		`{"email":"ada@example.com","password":"secret1"}`)
	assert.Contains(t, decode(t, w)["details"], assert.AnError.Error())
}

func TestAuthHandler_ForgotPasswordIsUniform(t *testing.T) {
	auth := &stubAuth{}
	w := doJSON(authRouter(auth, false), http.MethodPost, "/forgot", `{"email":"nobody@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, constants.MsgResetLinkSent, decode(t, w)["message"])
	assert.Equal(t, "nobody@example.com", auth.forgotEmail)
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	w := doJSON(authRouter(&stubAuth{}, false), http.MethodPost, "/reset", `{"token":"abc","password":"newpass"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(authRouter(&stubAuth{resetErr: apperrors.ErrInvalidResetToken}, false), http.MethodPost, "/reset", `{"token":"abc","password":"newpass"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired reset token", decode(t, w)["message"])
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	auth := &stubAuth{}
	w := doJSON(authRouter(auth, false), http.MethodGet, "/verify?token=tok&email=ada%40example.com", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", auth.verifyEmail)
	assert.Equal(t, "tok", auth.verifyToken)

	w = doJSON(authRouter(&stubAuth{}, false), http.MethodGet, "/verify?email=ada%40example.com", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(authRouter(&stubAuth{verifyErr: apperrors.ErrInvalidVerificationToken}, false), http.MethodGet, "/verify?token=tok&email=ada%40example.com", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired verification token", decode(t, w)["message"])
}

func TestAuthHandler_ResendVerification(t *testing.T) {
	auth := &stubAuth{}
	w := doJSON(authRouter(auth, false), http.MethodPost, "/resend", `{"email":"ada@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, constants.MsgVerificationResent, decode(t, w)["message"])
	assert.Equal(t, "ada@example.com", auth.resendEmail)
}

func TestAuthHandler_Profile(t *testing.T) {
	auth := &stubAuth{}

	w := doJSON(authRouter(auth, false), http.MethodGet, "/profile?as=7", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), decode(t, w)["_id"])

	w = doJSON(authRouter(auth, false), http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, []uint{7}, auth.profileCalls)
}

type stubFederated struct {
	params service.CallbackParams
}

func (s *stubFederated) LoginURL(ctx context.Context, provider string) (string, error) {
	if provider != "google" {
		return "", apperrors.ErrUnknownProvider
	}
	return "https://accounts.example.com/auth?state=s1", nil
}

func (s *stubFederated) HandleCallback(ctx context.Context, provider string, params service.CallbackParams) string {
	s.params = params
	return "http://localhost:3000/auth/callback?token=t&userId=1"
}

func TestOAuthHandler(t *testing.T) {
	fed := &stubFederated{}
	h := NewOAuthHandler(fed, false)
	r := gin.New()
	r.GET("/auth/:provider", h.Login)
	r.GET("/auth/:provider/callback", h.Callback)

	w := doJSON(r, http.MethodGet, "/auth/google", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://accounts.example.com/auth?state=s1", w.Header().Get("Location"))

	w = doJSON(r, http.MethodGet, "/auth/twitter", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/auth/google/callback?state=s1&code=c1", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:3000/auth/callback?token=t&userId=1", w.Header().Get("Location"))
	assert.Equal(t, service.CallbackParams{State: "s1", Code: "c1"}, fed.params)
}

type stubContacts struct{ got *dto.ContactRequest }

func (s *stubContacts) Submit(ctx context.Context, req *dto.ContactRequest) (*model.Contact, error) {
	s.got = req
	return &model.Contact{ID: 3, FirstName: req.FirstName, Status: constants.ContactStatusPending}, nil
}

func TestContactHandler_Submit(t *testing.T) {
	contacts := &stubContacts{}
	r := gin.New()
	r.POST("/contact", NewContactHandler(contacts, false).Submit)

	w := doJSON(r, http.MethodPost, "/contact",
		`{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","subject":"Hi","message":"Hello there"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "pending", body["data"].(map[string]any)["status"])

	w = doJSON(r, http.MethodPost, "/contact", `{"firstName":"Ada","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decode(t, w)["details"], 4)
}

type stubAssessments struct {
	err error
}

func (s *stubAssessments) Start(ctx context.Context) (*dto.StartAssessmentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.StartAssessmentResponse{SessionID: "sess-1"}, nil
}
func (s *stubAssessments) SubmitProfile(ctx context.Context, sessionID string, req *dto.ProfileRequest) error {
	return s.err
}
func (s *stubAssessments) Question(ctx context.Context, sessionID string) (*inference.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &inference.Question{Question: "Why?", QuestionNumber: 2}, nil
}
func (s *stubAssessments) Answer(ctx context.Context, req *dto.AnswerRequest) (*inference.AnswerResult, error) {
	return &inference.AnswerResult{Completed: true}, s.err
}
func (s *stubAssessments) Results(ctx context.Context, sessionID string) (*dto.ResultsResponse, error) {
	return &dto.ResultsResponse{PersonalityType: "INTJ"}, s.err
}
func (s *stubAssessments) Status(ctx context.Context, sessionID string) (map[string]any, error) {
	return map[string]any{"session_id": sessionID}, s.err
}
func (s *stubAssessments) Delete(ctx context.Context, sessionID string) error { return s.err }
func (s *stubAssessments) Health(ctx context.Context) (map[string]any, error) {
	return map[string]any{"status": "ok"}, s.err
}

func assessmentRouter(svc *stubAssessments) *gin.Engine {
	h := NewAssessmentHandler(svc, false)
	r := gin.New()
	r.POST("/start", h.Start)
	r.POST("/:session/profile", h.SubmitProfile)
	r.GET("/:session/question", h.Question)
	r.POST("/answer", h.Answer)
	return r
}

func TestAssessmentHandler_Relay(t *testing.T) {
	r := assessmentRouter(&stubAssessments{})

	w := doJSON(r, http.MethodPost, "/start", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-1", decode(t, w)["session_id"])

	w = doJSON(r, http.MethodGet, "/sess-1/question", "")
	assert.Equal(t, float64(2), decode(t, w)["question_number"])

	w = doJSON(r, http.MethodPost, "/answer", `{"session_id":"sess-1","answer":"ok"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/sess-1/profile", `{"profession":"Engineer","field":"Software","interests":"chess"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssessmentHandler_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{
			"relays upstream 4xx",
			apperrors.WrapError(apperrors.ErrUpstreamRejected, &inference.APIError{StatusCode: http.StatusNotFound, Detail: "Session not found"}),
			http.StatusNotFound,
			"Session not found",
		},
		{
			"upstream failure",
			apperrors.WrapError(apperrors.ErrUpstreamFailed, &inference.APIError{StatusCode: http.StatusInternalServerError}),
			http.StatusBadGateway,
			"assessment service error",
		},
		{
			"circuit open",
			apperrors.ErrUpstreamUnavailable,
			http.StatusServiceUnavailable,
			"assessment service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(assessmentRouter(&stubAssessments{err: tt.err}), http.MethodGet, "/sess-1/question", "")
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["message"])
		})
	}
}

type stubChecker struct{ report health.Report }

func (s stubChecker) CheckAll(ctx context.Context) health.Report { return s.report }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		status health.Status
		want   int
	}{
		{health.StatusHealthy, http.StatusOK},
		{health.StatusDegraded, http.StatusOK},
		{health.StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			h := NewHealthHandler(stubChecker{report: health.Report{
				Status:    tt.status,
				Checks:    map[string]health.CheckResult{"database": {Name: "database", Status: tt.status}},
				Timestamp: time.Now(),
			}}, nil)
			r := gin.New()
			r.GET("/health", h.HealthCheck)

			w := doJSON(r, http.MethodGet, "/health", "")
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.status.String(), decode(t, w)["status"])
		})
	}
}

type stubUpstreams map[string]pool.BackendHealth

func (s stubUpstreams) GetHealthStats() map[string]pool.BackendHealth { return s }

func TestHealthHandler_ReportsUpstreamStats(t *testing.T) {
	h := NewHealthHandler(stubChecker{report: health.Report{Status: health.StatusHealthy, Timestamp: time.Now()}},
		stubUpstreams{"inference": {Name: "inference", IsHealthy: false, LastError: "timeout", FailureCount: 3}})
	r := gin.New()
	r.GET("/health", h.HealthCheck)

	w := doJSON(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	upstreams, ok := decode(t, w)["upstreams"].(map[string]any)
	require.True(t, ok)
	upstream, ok := upstreams["inference"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, upstream["is_healthy"])
	assert.Equal(t, "timeout", upstream["last_error"])
	assert.EqualValues(t, 3, upstream["failure_count"])
}
