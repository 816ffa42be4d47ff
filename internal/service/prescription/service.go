package prescription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/repository"
	"github.com/Mihirdhami7/hms-api/internal/service/notification"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
	"github.com/Mihirdhami7/hms-api/pkg/logger"
	"github.com/Mihirdhami7/hms-api/pkg/metrics"
	"github.com/Mihirdhami7/hms-api/pkg/validator"
)

type Service struct {
	repo     repository.PrescriptionRepository
	aptRepo  repository.AppointmentRepository
	notifSvc notification.Service
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(repo repository.PrescriptionRepository, aptRepo repository.AppointmentRepository, notifSvc notification.Service, m *metrics.Metrics, l *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		aptRepo:  aptRepo,
		notifSvc: notifSvc,
		metrics:  m,
		logger:   l,
	}
}

// Create writes the prescription and completes its appointment in one
// transaction. Only the appointment's own doctor may prescribe, and only
// while the appointment is approved.
func (s *Service) Create(ctx context.Context, req *model.CreatePrescriptionRequest, actor model.Actor) (*model.Prescription, error) {
	if actor.Role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only doctors can create prescriptions")
	}

	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, apperrors.Validation("invalid appointment id")
	}

	medicines, err := parseMedicines(req.Medicines)
	if err != nil {
		return nil, err
	}
	vitals, err := parseVitals(req.Vitals)
	if err != nil {
		return nil, err
	}
	reports, err := parseReports(req.Reports)
	if err != nil {
		return nil, err
	}

	apt, err := s.aptRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	// embedded snapshots may still carry the legacy flat shape
	doctor, err := model.NormalizeEmbeddedPerson(apt.Doctor, model.PersonRoleDoctor)
	if err != nil {
		return nil, apperrors.Dependency("failed to read appointment record", err)
	}
	patient, err := model.NormalizeEmbeddedPerson(apt.Patient, model.PersonRolePatient)
	if err != nil {
		return nil, apperrors.Dependency("failed to read appointment record", err)
	}

	if !actor.SameEmail(doctor.Email) {
		return nil, apperrors.Forbidden("you can only create prescriptions for your own appointments")
	}
	if apt.Status != model.AppointmentStatusApproved {
		return nil, apperrors.InvalidState("prescription can only be created for approved appointments")
	}

	exists, err := s.repo.ExistsForAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing prescription: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("prescription already exists for this appointment")
	}

	// request fields override the booking-time snapshot
	if req.PatientAge != nil {
		patient.Age = req.PatientAge
	}
	if req.PatientPhone != nil && *req.PatientPhone != "" {
		patient.Phone = req.PatientPhone
	} else {
		patient.Phone = patient.ContactNo
	}
	if req.PatientAddress != nil && *req.PatientAddress != "" {
		patient.Address = req.PatientAddress
	}

	now := time.Now()
	p := &model.Prescription{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Patient:       patient,
		Doctor:        doctor,
		HospitalName:  apt.HospitalName,
		Department:    apt.Department,
		Vitals:        vitals,
		Medicines:     medicines,
		Suggestions:   req.Suggestions,
		Reports:       reports,
		Status:        model.PrescriptionStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	rows, err := s.repo.CreateAndCompleteAppointment(ctx, p)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// the appointment left approved between the check and the commit
		current, err := s.aptRepo.Get(ctx, appointmentID)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState("prescription can only be created for approved appointments, appointment is %s", current.Status)
	}
	s.metrics.PrescriptionsCreated.Inc()

	if patient.Email != "" {
		refID := p.ID.String()
		n := &model.Notification{
			RecipientEmail: patient.Email,
			Title:          "Prescription Created",
			Message:        fmt.Sprintf("Dr. %s has created a prescription for your appointment", doctor.Name),
			Type:           model.NotificationTypePrescription,
			ReferenceID:    &refID,
		}
		if err := s.notifSvc.Send(ctx, n); err != nil {
			s.logger.Error(err, "failed to queue notification", "recipient", patient.Email)
		}
	}
	return p, nil
}

// MarkInvoiced attaches an invoice reference and flips active to invoiced.
func (s *Service) MarkInvoiced(ctx context.Context, id uuid.UUID, req *model.MarkInvoicedRequest, actor model.Actor) (*model.Prescription, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleSupplier {
		return nil, apperrors.Forbidden("only admins and suppliers can invoice prescriptions")
	}

	rows, err := s.repo.MarkInvoiced(ctx, id, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to invoice prescription: %w", err)
	}
	if rows == 0 {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState("prescription is already %s", current.Status)
	}
	s.metrics.PrescriptionsInvoiced.Inc()

	return s.repo.Get(ctx, id)
}

// Get fetches one prescription, scoped to its participants and hospital staff.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Prescription, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RolePatient:
		if !actor.SameEmail(p.Patient.Email) {
			return nil, apperrors.Forbidden("you can only view your own prescriptions")
		}
	case model.RoleDoctor:
		if !actor.SameEmail(p.Doctor.Email) {
			return nil, apperrors.Forbidden("you can only view your own prescriptions")
		}
	case model.RoleAdmin, model.RoleSupplier:
		if actor.HospitalName != p.HospitalName {
			return nil, apperrors.Forbidden("prescription belongs to another hospital")
		}
	default:
		return nil, apperrors.Forbidden("insufficient role")
	}
	return p, nil
}

// ListMine returns the caller's prescriptions, newest first.
func (s *Service) ListMine(ctx context.Context, actor model.Actor, status string) ([]*model.Prescription, error) {
	if actor.Role != model.RolePatient && actor.Role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only patients and doctors have personal prescription lists")
	}
	parsed, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByParticipant(ctx, actor.Role, actor.Email, parsed)
}

// ListPending returns the hospital's prescriptions not yet invoiced.
func (s *Service) ListPending(ctx context.Context, actor model.Actor, filters model.PrescriptionFilters) ([]*model.Prescription, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleSupplier {
		return nil, apperrors.Forbidden("only admins and suppliers can list pending prescriptions")
	}
	return s.repo.ListPendingByHospital(ctx, actor.HospitalName, filters)
}

// ListAll returns every prescription in the caller's hospital.
func (s *Service) ListAll(ctx context.Context, actor model.Actor, filters model.PrescriptionFilters) ([]*model.Prescription, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleSupplier {
		return nil, apperrors.Forbidden("only admins and suppliers can list hospital prescriptions")
	}
	if filters.Status != "" {
		parsed, err := parseStatusFilter(string(filters.Status))
		if err != nil {
			return nil, err
		}
		filters.Status = parsed
	}
	if filters.Date != "" {
		if _, err := validator.ParseDate(filters.Date); err != nil {
			return nil, apperrors.Validation("date filter must be in YYYY-MM-DD format")
		}
	}
	return s.repo.ListByHospital(ctx, actor.HospitalName, filters)
}

var medicineRequiredFields = []string{"medicineId", "name", "quantity", "dosage", "duration", "price"}

// parseMedicines validates the raw medicines array field by field so errors
// can name the offending index instead of a generic bind failure.
func parseMedicines(raw json.RawMessage) (model.MedicineList, error) {
	if len(raw) == 0 {
		return nil, apperrors.Validation("at least one medicine is required")
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, apperrors.Validation("medicines must be a list of objects")
	}
	if len(entries) == 0 {
		return nil, apperrors.Validation("at least one medicine is required")
	}

	medicines := make(model.MedicineList, 0, len(entries))
	for idx, entry := range entries {
		for _, field := range medicineRequiredFields {
			if _, ok := entry[field]; !ok {
				return nil, apperrors.Validation("medicine at index %d is missing: %s", idx, field)
			}
		}

		var m model.Medicine
		if err := unmarshalField(entry, "medicineId", &m.MedicineID); err != nil {
			return nil, apperrors.Validation("medicine %d: invalid medicineId", idx)
		}
		if err := unmarshalField(entry, "name", &m.Name); err != nil {
			return nil, apperrors.Validation("medicine %d: invalid name", idx)
		}
		if err := unmarshalField(entry, "quantity", &m.Quantity); err != nil {
			return nil, apperrors.Validation("medicine %d: invalid quantity", idx)
		}
		if err := unmarshalField(entry, "dosage", &m.Dosage); err != nil {
			return nil, apperrors.Validation("medicine %d: invalid dosage", idx)
		}
		if err := unmarshalField(entry, "duration", &m.Duration); err != nil {
			return nil, apperrors.Validation("medicine %d: invalid duration", idx)
		}
		if err := unmarshalField(entry, "price", &m.Price); err != nil {
			return nil, apperrors.Validation("medicine %d: invalid price", idx)
		}

		if m.Quantity <= 0 {
			return nil, apperrors.Validation("medicine %d: quantity must be > 0", idx)
		}
		if m.Price < 0 {
			return nil, apperrors.Validation("medicine %d: price cannot be negative", idx)
		}
		medicines = append(medicines, m)
	}
	return medicines, nil
}

func unmarshalField(entry map[string]json.RawMessage, field string, dst interface{}) error {
	return json.Unmarshal(entry[field], dst)
}

var allowedVitalFields = map[string]func(v *model.Vitals, value string){
	"bloodPressure": func(v *model.Vitals, value string) { v.BloodPressure = &value },
	"heartRate":     func(v *model.Vitals, value string) { v.HeartRate = &value },
	"temperature":   func(v *model.Vitals, value string) { v.Temperature = &value },
	"weight":        func(v *model.Vitals, value string) { v.Weight = &value },
	"height":        func(v *model.Vitals, value string) { v.Height = &value },
	"oxygenLevel":   func(v *model.Vitals, value string) { v.OxygenLevel = &value },
}

func parseVitals(raw map[string]string) (model.Vitals, error) {
	var vitals model.Vitals
	for field, value := range raw {
		set, ok := allowedVitalFields[field]
		if !ok {
			return vitals, apperrors.Validation("invalid vital field: %s", field)
		}
		set(&vitals, value)
	}
	return vitals, nil
}

func parseReports(reports *model.Reports) (model.Reports, error) {
	if reports == nil {
		return model.Reports{ReportType: model.ReportTypeNone}, nil
	}
	if !reports.ReportType.Valid() {
		return model.Reports{}, apperrors.Validation("invalid reportType: %s", reports.ReportType)
	}
	return *reports, nil
}

func parseStatusFilter(status string) (model.PrescriptionStatus, error) {
	switch model.PrescriptionStatus(status) {
	case "", "all":
		return "", nil
	case model.PrescriptionStatusActive, model.PrescriptionStatusInvoiced, model.PrescriptionStatusCompleted:
		return model.PrescriptionStatus(status), nil
	}
	return "", apperrors.Validation("unknown status filter: %s", status)
}
