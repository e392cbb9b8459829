package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/dto"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
)

// AuthService is the account surface used by the auth routes.
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	ForgotPassword(ctx context.Context, email string)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
	VerifyEmail(ctx context.Context, email, token string) error
	ResendVerification(ctx context.Context, email string)
	Profile(ctx context.Context, userID uint) (*dto.ProfileResponse, error)
}

type AuthHandler struct {
	responder
	auth AuthService
}

func NewAuthHandler(auth AuthService, debug bool) *AuthHandler {
	return &AuthHandler{responder: responder{debug: debug}, auth: auth}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Signup")

	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	resp, err := h.auth.Signup(ctx, &req)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Login")

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	resp, err := h.auth.Login(ctx, &req)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ForgotPassword answers identically whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ForgotPassword")

	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	h.auth.ForgotPassword(ctx, req.Email)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: constants.MsgResetLinkSent})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ResetPassword")

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	if err := h.auth.ResetPassword(ctx, &req); err != nil {
		h.fail(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: constants.MsgPasswordResetSuccess})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "VerifyEmail")

	var query dto.VerifyEmailQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	if err := h.auth.VerifyEmail(ctx, query.Email, query.Token); err != nil {
		h.fail(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: constants.MsgEmailVerified})
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ResendVerification")

	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	h.auth.ResendVerification(ctx, req.Email)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: constants.MsgVerificationResent})
}

// Profile requires RequireAuth ahead of it in the chain.
func (h *AuthHandler) Profile(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Profile")

	userID := c.GetUint(constants.GinKeyUserID)
	if userID == 0 {
		h.fail(c, ctx, apperrors.ErrUnauthorized)
		return
	}

	resp, err := h.auth.Profile(ctx, userID)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
