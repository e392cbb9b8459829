package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/dto"
	"github.com/personality-predictor/backend/internal/model"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
)

type ContactService interface {
	Submit(ctx context.Context, req *dto.ContactRequest) (*model.Contact, error)
}

type ContactHandler struct {
	responder
	contacts ContactService
}

func NewContactHandler(contacts ContactService, debug bool) *ContactHandler {
	return &ContactHandler{responder: responder{debug: debug}, contacts: contacts}
}

func (h *ContactHandler) Submit(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "SubmitContact")

	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, ctx, err)
		return
	}

	contact, err := h.contacts.Submit(ctx, &req)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}

	c.JSON(http.StatusCreated, constants.BuildDataResponse(contact))
}
