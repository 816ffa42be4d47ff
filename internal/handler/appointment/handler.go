package appointment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/middleware"
	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/service/appointment"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
	"github.com/Mihirdhami7/hms-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}
	actor, _ := middleware.ActorFrom(c)

	apt, err := h.service.Book(c.Request.Context(), &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) Decide(c *gin.Context) {
	var req model.DecideAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}
	actor, _ := middleware.ActorFrom(c)

	apt, err := h.service.Decide(c.Request.Context(), &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment id"))
		return
	}

	// body is optional; only a malformed one is an error
	var req model.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithValidationError(c, err)
			return
		}
	}
	actor, _ := middleware.ActorFrom(c)

	apt, err := h.service.Cancel(c.Request.Context(), id, &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment id"))
		return
	}

	var req model.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}
	actor, _ := middleware.ActorFrom(c)

	apt, err := h.service.RecordPayment(c.Request.Context(), id, &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment id"))
		return
	}
	actor, _ := middleware.ActorFrom(c)

	apt, err := h.service.Get(c.Request.Context(), id, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	appointments, err := h.service.ListMine(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ListPending(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	appointments, err := h.service.ListPending(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ListAll(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	filters := model.AppointmentFilters{
		Status:      model.AppointmentStatus(c.Query("status")),
		Date:        c.Query("date"),
		DoctorEmail: c.Query("doctorEmail"),
	}

	appointments, err := h.service.ListAll(c.Request.Context(), actor, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}
