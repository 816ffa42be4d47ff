package notification

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/middleware"
	"github.com/Mihirdhami7/hms-api/internal/service/notification"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
	"github.com/Mihirdhami7/hms-api/pkg/httputil"
)

type Handler struct {
	service notification.Service
}

func NewHandler(service notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	notifications, err := h.service.ListForRecipient(c.Request.Context(), actor.Email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notifications)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid notification id"))
		return
	}
	actor, _ := middleware.ActorFrom(c)

	if err := h.service.MarkRead(c.Request.Context(), id, actor); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"read": true})
}
