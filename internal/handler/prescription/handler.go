package prescription

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/middleware"
	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/service/prescription"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
	"github.com/Mihirdhami7/hms-api/pkg/httputil"
)

type Handler struct {
	service *prescription.Service
}

func NewHandler(service *prescription.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}
	actor, _ := middleware.ActorFrom(c)

	p, err := h.service.Create(c.Request.Context(), &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, p)
}

func (h *Handler) MarkInvoiced(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid prescription id"))
		return
	}

	var req model.MarkInvoicedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}
	actor, _ := middleware.ActorFrom(c)

	p, err := h.service.MarkInvoiced(c.Request.Context(), id, &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid prescription id"))
		return
	}
	actor, _ := middleware.ActorFrom(c)

	p, err := h.service.Get(c.Request.Context(), id, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	prescriptions, err := h.service.ListMine(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prescriptions)
}

func (h *Handler) ListPending(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	filters := model.PrescriptionFilters{
		AppointmentID: c.Query("appointmentId"),
	}

	prescriptions, err := h.service.ListPending(c.Request.Context(), actor, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prescriptions)
}

func (h *Handler) ListAll(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	filters := model.PrescriptionFilters{
		Status:       model.PrescriptionStatus(c.Query("status")),
		InvoiceID:    c.Query("invoiceId"),
		DoctorEmail:  c.Query("doctorEmail"),
		PatientEmail: c.Query("patientEmail"),
		Date:         c.Query("date"),
	}

	prescriptions, err := h.service.ListAll(c.Request.Context(), actor, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prescriptions)
}
