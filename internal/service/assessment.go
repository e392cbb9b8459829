package service

import (
	"context"
	"errors"
	"strings"

	"github.com/personality-predictor/backend/internal/dto"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	"github.com/personality-predictor/backend/pkg/circuit"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/inference"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/validation"
)

// AssessmentAPI is the inference client surface relayed over HTTP.
type AssessmentAPI interface {
	inference.Assessor
	SessionStatus(ctx context.Context, sessionID string) (map[string]any, error)
	Health(ctx context.Context) (map[string]any, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// AssessmentService is a stateless relay to the inference API; the session
// id travels with every request and nothing is stored here.
type AssessmentService struct {
	api       AssessmentAPI
	sanitizer *validation.Sanitizer
}

func NewAssessmentService(api AssessmentAPI, sanitizer *validation.Sanitizer) *AssessmentService {
	if sanitizer == nil {
		sanitizer = validation.NewSanitizer()
	}
	return &AssessmentService{api: api, sanitizer: sanitizer}
}

func (s *AssessmentService) Start(ctx context.Context) (*dto.StartAssessmentResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "StartAssessment")

	sessionID, err := s.api.StartAssessment(ctx)
	if err != nil {
		return nil, s.upstreamError(ctx, err)
	}
	return &dto.StartAssessmentResponse{SessionID: sessionID}, nil
}

func (s *AssessmentService) SubmitProfile(ctx context.Context, sessionID string, req *dto.ProfileRequest) error {
	ctx = ctxutil.WithFunction(ctx, "service", "SubmitProfile")

	profile := inference.Profile{
		Profession: s.sanitizer.Text(req.Profession),
		Field:      s.sanitizer.Text(req.Field),
		Interests:  s.sanitizer.Text(req.Interests),
	}
	if profile.Profession == "" || profile.Field == "" || profile.Interests == "" {
		return apperrors.ErrInvalidInput
	}

	if err := s.api.SubmitProfile(ctx, sessionID, profile); err != nil {
		return s.upstreamError(ctx, err)
	}
	return nil
}

func (s *AssessmentService) Question(ctx context.Context, sessionID string) (*inference.Question, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Question")

	q, err := s.api.GetQuestion(ctx, sessionID)
	if err != nil {
		return nil, s.upstreamError(ctx, err)
	}
	q.Question = inference.StripMarkdown(q.Question)
	return q, nil
}

func (s *AssessmentService) Answer(ctx context.Context, req *dto.AnswerRequest) (*inference.AnswerResult, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Answer")

	answer := strings.TrimSpace(req.Answer)
	if len([]rune(answer)) < inference.MinAnswerLength {
		return nil, apperrors.ErrInvalidInput
	}

	res, err := s.api.SubmitAnswer(ctx, req.SessionID, answer)
	if err != nil {
		return nil, s.upstreamError(ctx, err)
	}
	return res, nil
}

func (s *AssessmentService) Results(ctx context.Context, sessionID string) (*dto.ResultsResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Results")

	res, err := s.api.GetResults(ctx, sessionID)
	if err != nil {
		return nil, s.upstreamError(ctx, err)
	}
	return &dto.ResultsResponse{
		PersonalityType:  res.PersonalityType,
		DetailedAnalysis: inference.StripMarkdown(res.DetailedAnalysis),
		Raw:              res.Extra,
	}, nil
}

func (s *AssessmentService) Status(ctx context.Context, sessionID string) (map[string]any, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Status")

	out, err := s.api.SessionStatus(ctx, sessionID)
	if err != nil {
		return nil, s.upstreamError(ctx, err)
	}
	return out, nil
}

func (s *AssessmentService) Delete(ctx context.Context, sessionID string) error {
	ctx = ctxutil.WithFunction(ctx, "service", "DeleteSession")

	if err := s.api.DeleteSession(ctx, sessionID); err != nil {
		return s.upstreamError(ctx, err)
	}
	return nil
}

func (s *AssessmentService) Health(ctx context.Context) (map[string]any, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "AssessmentHealth")

	out, err := s.api.Health(ctx)
	if err != nil {
		return nil, s.upstreamError(ctx, err)
	}
	return out, nil
}

// upstreamError classifies an inference failure: a 4xx reply is relayed,
// an open breaker is unavailability, anything else is a gateway failure.
func (s *AssessmentService) upstreamError(ctx context.Context, err error) error {
	if apiErr, ok := inference.AsAPIError(err); ok && apiErr.StatusCode < 500 {
		logger.InfoWithContext(ctx, "Assessment request rejected upstream").
			Int("status_code", apiErr.StatusCode).
			String("detail", apiErr.Detail).
			Log()
		return apperrors.WrapError(apperrors.ErrUpstreamRejected, apiErr)
	}

	if errors.Is(err, inference.ErrEmptySession) {
		return apperrors.ErrInvalidInput
	}

	if errors.Is(err, circuit.ErrCircuitOpen) || errors.Is(err, circuit.ErrTooManyRequests) {
		logger.WarnWithContext(ctx, "Assessment service circuit open").Log()
		return apperrors.WrapError(apperrors.ErrUpstreamUnavailable, err)
	}

	logger.ErrorWithContext(ctx, "Assessment service call failed").
		Err(err).
		Log()
	return apperrors.WrapError(apperrors.ErrUpstreamFailed, err)
}
