package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/personality-predictor/backend/internal/service"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/logger"
)

// FederatedService is the federated login surface.
type FederatedService interface {
	LoginURL(ctx context.Context, provider string) (string, error)
	HandleCallback(ctx context.Context, provider string, params service.CallbackParams) string
}

type OAuthHandler struct {
	responder
	federated FederatedService
}

func NewOAuthHandler(federated FederatedService, debug bool) *OAuthHandler {
	return &OAuthHandler{responder: responder{debug: debug}, federated: federated}
}

// Login redirects the browser to the provider's consent page.
func (h *OAuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "OAuthLogin")
	provider := c.Param("provider")

	target, err := h.federated.LoginURL(ctx, provider)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}

	c.Redirect(http.StatusFound, target)
}

// Callback always answers with a redirect to the frontend.
func (h *OAuthHandler) Callback(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "OAuthCallback")
	provider := c.Param("provider")

	target := h.federated.HandleCallback(ctx, provider, service.CallbackParams{
		State: c.Query("state"),
		Code:  c.Query("code"),
		Error: c.Query("error"),
	})

	logger.DebugWithContext(ctx, "Federated callback handled").
		String("provider", provider).
		Log()

	c.Redirect(http.StatusFound, target)
}
