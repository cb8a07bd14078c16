package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greg-maceachern12/binder-sub000/internal/apperr"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/services"
)

type WebhookHandler struct {
	log            *logger.Logger
	webhookService services.WebhookService
}

func NewWebhookHandler(log *logger.Logger, webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		log:            log.With("handler", "WebhookHandler"),
		webhookService: webhookService,
	}
}

// POST /webhooks/lemonsqueezy
func (h *WebhookHandler) LemonSqueezy(c *gin.Context) {
	h.ingest(c, services.ProviderLemonSqueezy, c.GetHeader("X-Signature"))
}

// POST /webhooks/polar
func (h *WebhookHandler) Polar(c *gin.Context) {
	h.ingest(c, services.ProviderPolar, c.GetHeader("webhook-signature"))
}

func (h *WebhookHandler) ingest(c *gin.Context, provider services.WebhookProvider, signature string) {
	// The signature covers the raw, unparsed body.
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}

	if err := h.webhookService.Ingest(c.Request.Context(), provider, rawBody, signature); err != nil {
		if !errors.Is(err, apperr.ErrUnauthorized) {
			h.log.Error("Webhook ingest failed", "provider", provider, "error", err)
		}
		RespondServiceError(c, "webhook_failed", err)
		return
	}
	RespondOK(c, gin.H{"received": true})
}
