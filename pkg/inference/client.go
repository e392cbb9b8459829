package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/personality-predictor/backend/pkg/circuit"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/pool"
	"go.uber.org/zap"
)

// UpstreamName identifies the inference API in the connection pool and
// breaker registry.
const UpstreamName = "inference"

var ErrEmptySession = errors.New("session id is required")

// Profile is the short self-description collected before the questions.
type Profile struct {
	Profession string `json:"profession"`
	Field      string `json:"field"`
	Interests  string `json:"interests"`
}

type Question struct {
	Question       string `json:"question"`
	QuestionNumber int    `json:"question_number"`
}

type AnswerResult struct {
	Completed bool   `json:"completed"`
	Message   string `json:"message,omitempty"`
}

type Results struct {
	PersonalityType  string         `json:"personality_type"`
	DetailedAnalysis string         `json:"detailed_analysis"`
	Extra            map[string]any `json:"-"`
}

// APIError is a 4xx/5xx reply from the inference API. Detail carries the
// service's own explanation when it sent one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("inference api %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("inference api %d", e.StatusCode)
}

// InvalidSessionState reports the upstream's "profile missing" condition,
// which is cured by resubmitting the profile.
func (e *APIError) InvalidSessionState() bool {
	return strings.Contains(e.Detail, "Invalid session state")
}

// NotCompleted reports that results were requested before the last answer.
func (e *APIError) NotCompleted() bool {
	return strings.Contains(e.Detail, "Assessment not completed")
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type Config struct {
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
}

// Client talks to the external personality inference API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	pool       *pool.ConnectionPool
	maxRetries int
	retryDelay time.Duration
}

func NewClient(cfg Config, httpClient *http.Client, breaker *circuit.Breaker, p *pool.ConnectionPool) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if breaker == nil {
		breaker = circuit.NewBreaker(UpstreamName, circuit.DefaultConfig(), logger.GetLogger())
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		breaker:    breaker,
		pool:       p,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

func (c *Client) StartAssessment(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/start-assessment", struct{}{}, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("start-assessment: response has no session_id")
	}
	return out.SessionID, nil
}

func (c *Client) SubmitProfile(ctx context.Context, sessionID string, profile Profile) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return c.do(ctx, http.MethodPost, "/submit-profile/"+url.PathEscape(sessionID), profile, nil)
}

func (c *Client) GetQuestion(ctx context.Context, sessionID string) (*Question, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	var q Question
	if err := c.do(ctx, http.MethodGet, "/get-question/"+url.PathEscape(sessionID), nil, &q); err != nil {
		return nil, err
	}
	if q.Question == "" {
		return nil, fmt.Errorf("get-question: response has no question")
	}
	return &q, nil
}

func (c *Client) SubmitAnswer(ctx context.Context, sessionID, answer string) (*AnswerResult, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	body := map[string]string{"session_id": sessionID, "answer": answer}
	var res AnswerResult
	if err := c.do(ctx, http.MethodPost, "/submit-answer", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetResults(ctx context.Context, sessionID string) (*Results, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	var raw map[string]any
	if err := c.do(ctx, http.MethodGet, "/get-results/"+url.PathEscape(sessionID), nil, &raw); err != nil {
		return nil, err
	}

	res := &Results{Extra: raw}
	res.PersonalityType, _ = raw["personality_type"].(string)
	res.DetailedAnalysis, _ = raw["detailed_analysis"].(string)
	if res.PersonalityType == "" || res.DetailedAnalysis == "" {
		return nil, fmt.Errorf("get-results: incomplete results payload")
	}
	return res, nil
}

func (c *Client) SessionStatus(ctx context.Context, sessionID string) (map[string]any, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/session-status/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return c.do(ctx, http.MethodDelete, "/delete-session/"+url.PathEscape(sessionID), nil, nil)
}

// do runs one logical call through the breaker. 4xx replies are returned as
// *APIError without counting against the breaker; transport errors and 5xx
// are retried with exponential backoff and do count.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	zapLogger := logger.GetLogger().With(
		zap.String("operation", "inference_request"),
		zap.String("method", method),
		zap.String("path", path),
	)

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	var respBody []byte
	var clientErr *APIError

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		backoff := c.retryDelay
		var lastErr error

		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			data, status, err := c.roundTrip(ctx, method, path, payload)
			switch {
			case err != nil:
				lastErr = err
			case status >= 500:
				lastErr = &APIError{StatusCode: status, Detail: extractDetail(data)}
			case status >= 400:
				clientErr = &APIError{StatusCode: status, Detail: extractDetail(data)}
				return nil
			default:
				respBody = data
				return nil
			}

			zapLogger.Warn("Inference request attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Error(lastErr),
			)

			if attempt == c.maxRetries {
				break
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
		}
		return lastErr
	})

	if err != nil {
		if c.pool != nil {
			c.pool.RecordFailure(UpstreamName, err)
		}
		zapLogger.Error("Inference request failed", zap.Error(err))
		return err
	}
	if c.pool != nil {
		c.pool.RecordSuccess(UpstreamName)
	}

	if clientErr != nil {
		zapLogger.Info("Inference request rejected",
			zap.Int("status_code", clientErr.StatusCode),
			zap.String("detail", clientErr.Detail),
		)
		return clientErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// extractDetail pulls the "detail" message out of an error body, falling
// back to the raw text.
func extractDetail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(string(body))
}
