package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/personality-predictor/backend/internal/constants"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/validation"
)

// responder renders errors. Internal error text is only exposed in debug mode.
type responder struct {
	debug bool
}

func (r responder) fail(c *gin.Context, ctx context.Context, err error) {
	status := apperrors.ToHTTPStatus(err)

	var details any
	if r.debug {
		details = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorWithContext(ctx, "Request failed").
			StatusCode(status).
			Err(err).
			Log()
	}

	c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), details))
}

// bindFailed answers a request whose body or query did not bind. The first
// field message becomes the headline.
func (r responder) bindFailed(c *gin.Context, ctx context.Context, err error) {
	logger.InfoWithContext(ctx, "Request validation failed").
		Err(err).
		Log()

	fields := validation.Translate(err)
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}
	c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(fields[0].Message, fields))
}
