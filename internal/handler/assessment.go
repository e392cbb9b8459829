package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/dto"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/inference"
)

type AssessmentService interface {
	Start(ctx context.Context) (*dto.StartAssessmentResponse, error)
	SubmitProfile(ctx context.Context, sessionID string, req *dto.ProfileRequest) error
	Question(ctx context.Context, sessionID string) (*inference.Question, error)
	Answer(ctx context.Context, req *dto.AnswerRequest) (*inference.AnswerResult, error)
	Results(ctx context.Context, sessionID string) (*dto.ResultsResponse, error)
	Status(ctx context.Context, sessionID string) (map[string]any, error)
	Delete(ctx context.Context, sessionID string) error
	Health(ctx context.Context) (map[string]any, error)
}

// AssessmentHandler relays the chat dialogue to the inference API.
type AssessmentHandler struct {
	responder
	assessments AssessmentService
}

func NewAssessmentHandler(assessments AssessmentService, debug bool) *AssessmentHandler {
	return &AssessmentHandler{responder: responder{debug: debug}, assessments: assessments}
}

// relayFail passes an upstream 4xx through with its own status and detail.
func (h *AssessmentHandler) relayFail(c *gin.Context, ctx context.Context, err error) {
	if apiErr, ok := inference.AsAPIError(err); ok && apiErr.StatusCode < http.StatusInternalServerError {
		message := apiErr.Detail
		if message == "" {
			message = apperrors.GetErrorMessage(err)
		}
		c.JSON(apiErr.StatusCode, constants.BuildErrorResponse(message, nil))
		return
	}
	h.fail(c, ctx, err)
}

func (h *AssessmentHandler) Start(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "StartAssessment")

	resp, err := h.assessments.Start(ctx)
	if err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssessmentHandler) SubmitProfile(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "SubmitProfile")

	var req dto.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	if err := h.assessments.SubmitProfile(ctx, c.Param("session"), &req); err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Profile submitted"})
}

func (h *AssessmentHandler) Question(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Question")

	q, err := h.assessments.Question(ctx, c.Param("session"))
	if err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *AssessmentHandler) Answer(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Answer")

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	res, err := h.assessments.Answer(ctx, &req)
	if err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AssessmentHandler) Results(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Results")

	res, err := h.assessments.Results(ctx, c.Param("session"))
	if err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AssessmentHandler) Status(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "SessionStatus")

	res, err := h.assessments.Status(ctx, c.Param("session"))
	if err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AssessmentHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "DeleteSession")

	if err := h.assessments.Delete(ctx, c.Param("session")); err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Session deleted"})
}

func (h *AssessmentHandler) Health(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "AssessmentHealth")

	res, err := h.assessments.Health(ctx)
	if err != nil {
		h.relayFail(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
