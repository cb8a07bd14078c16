package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/services"
)

type SubscriptionHandler struct {
	log         *logger.Logger
	entitlement services.EntitlementService
}

func NewSubscriptionHandler(log *logger.Logger, entitlement services.EntitlementService) *SubscriptionHandler {
	return &SubscriptionHandler{
		log:         log.With("handler", "SubscriptionHandler"),
		entitlement: entitlement,
	}
}

// GET /api/subscription/verify?user_id=
func (h *SubscriptionHandler) Verify(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_user_id", err)
		return
	}

	ent, user, err := h.entitlement.Resolve(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, "verify_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"status":       ent.Status,
		"can_generate": ent.CanGenerate,
		"user":         user,
	})
}
