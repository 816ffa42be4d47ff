package appointment

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/repository"
	"github.com/Mihirdhami7/hms-api/internal/service/identity"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
	"github.com/Mihirdhami7/hms-api/pkg/logger"
	"github.com/Mihirdhami7/hms-api/pkg/metrics"
	"github.com/Mihirdhami7/hms-api/pkg/validator"
)

var testMetrics = metrics.NewMetrics("appointment_service_test")

const testHospital = "City General"

var (
	patientActor = model.Actor{Email: "jane@example.com", Role: model.RolePatient, HospitalName: testHospital}
	doctorActor  = model.Actor{Email: "gregory@example.com", Role: model.RoleDoctor, HospitalName: testHospital}
	adminActor   = model.Actor{Email: "admin@example.com", Role: model.RoleAdmin, HospitalName: testHospital}
)

type fakeAppointmentRepo struct {
	mu             sync.Mutex
	appointments   map[uuid.UUID]*model.Appointment
	transitionRows *int64 // overrides TransitionFrom result when set
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *apt
	r.appointments[apt.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	copied := *apt
	return &copied, nil
}

func (r *fakeAppointmentRepo) HasActiveSlot(ctx context.Context, patientEmail, doctorEmail, date, timeSlot string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, apt := range r.appointments {
		if apt.Status != model.AppointmentStatusPending && apt.Status != model.AppointmentStatusApproved {
			continue
		}
		patient, err := model.NormalizeEmbeddedPerson(apt.Patient, model.PersonRolePatient)
		if err != nil {
			continue
		}
		doctor, err := model.NormalizeEmbeddedPerson(apt.Doctor, model.PersonRoleDoctor)
		if err != nil {
			continue
		}
		if !strings.EqualFold(patient.Email, patientEmail) || !strings.EqualFold(doctor.Email, doctorEmail) {
			continue
		}
		if apt.AppointmentDate != date {
			continue
		}
		if apt.RequestedTime == timeSlot || (apt.AcceptedTime != nil && *apt.AcceptedTime == timeSlot) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) TransitionFrom(ctx context.Context, id uuid.UUID, from model.AppointmentStatus, update repository.AppointmentUpdate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitionRows != nil {
		return *r.transitionRows, nil
	}
	apt, ok := r.appointments[id]
	if !ok || apt.Status != from {
		return 0, nil
	}
	apt.Status = update.Status
	apt.AcceptedDate = update.AcceptedDate
	apt.AcceptedTime = update.AcceptedTime
	apt.ApprovedBy = update.ApprovedBy
	apt.RejectedBy = update.RejectedBy
	apt.CancelledBy = update.CancelledBy
	apt.RejectionReason = update.RejectionReason
	apt.CancellationReason = update.CancellationReason
	apt.UpdatedAt = time.Now()
	return 1, nil
}

func (r *fakeAppointmentRepo) AppendPayment(ctx context.Context, id uuid.UUID, payment model.Payment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return 0, nil
	}
	apt.Payments = append(apt.Payments, payment)
	return 1, nil
}

func (r *fakeAppointmentRepo) ListByParticipant(ctx context.Context, role model.Role, email string, status model.AppointmentStatus) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		personRole := model.PersonRolePatient
		raw := apt.Patient
		if role == model.RoleDoctor {
			personRole = model.PersonRoleDoctor
			raw = apt.Doctor
		}
		person, err := model.NormalizeEmbeddedPerson(raw, personRole)
		if err != nil || !strings.EqualFold(person.Email, email) {
			continue
		}
		if status != "" && apt.Status != status {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListPendingByHospital(ctx context.Context, hospitalName string) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.HospitalName == hospitalName && apt.Status == model.AppointmentStatusPending {
			copied := *apt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListByHospital(ctx context.Context, hospitalName string, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.HospitalName != hospitalName {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if u, ok := r.users[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user")
}

func (r *fakeUserRepo) FindDoctorInHospital(ctx context.Context, email, hospitalName string) (*model.User, error) {
	u, ok := r.users[strings.ToLower(email)]
	if !ok || u.Role != model.RoleDoctor || u.HospitalName != hospitalName {
		return nil, apperrors.NotFound("doctor")
	}
	return u, nil
}

func (r *fakeUserRepo) FindAdminForHospital(ctx context.Context, hospitalName string) (*model.User, error) {
	for _, u := range r.users {
		if u.Role == model.RoleAdmin && u.HospitalName == hospitalName {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("hospital admin")
}

type sentNotification struct {
	Recipient string
	Title     string
	Message   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Send(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{Recipient: n.RecipientEmail, Title: n.Title, Message: n.Message})
	return nil
}

func (f *fakeNotifier) ListForRecipient(ctx context.Context, email string) ([]*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	return nil
}

func (f *fakeNotifier) titlesFor(recipient string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var titles []string
	for _, n := range f.sent {
		if strings.EqualFold(n.Recipient, recipient) {
			titles = append(titles, n.Title)
		}
	}
	return titles
}

func (f *fakeNotifier) lastFor(recipient string) *sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if strings.EqualFold(f.sent[i].Recipient, recipient) {
			n := f.sent[i]
			return &n
		}
	}
	return nil
}

func newTestService() (*Service, *fakeAppointmentRepo, *fakeNotifier) {
	repo := newFakeAppointmentRepo()
	notifier := &fakeNotifier{}
	users := &fakeUserRepo{users: map[string]*model.User{
		"jane@example.com": {
			ID: uuid.New(), Name: "Jane Smith", Email: "jane@example.com",
			Role: model.RolePatient, HospitalName: testHospital,
		},
		"gregory@example.com": {
			ID: uuid.New(), Name: "Gregory House", Email: "gregory@example.com",
			Role: model.RoleDoctor, HospitalName: testHospital,
		},
		"admin@example.com": {
			ID: uuid.New(), Name: "Admin", Email: "admin@example.com",
			Role: model.RoleAdmin, HospitalName: testHospital,
		},
	}}
	svc := NewService(repo, identity.NewService(users), notifier, testMetrics, logger.NewLogger(nil))
	return svc, repo, notifier
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(validator.DateLayout)
}

func bookRequest(days int) *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		PatientEmail:    "jane@example.com",
		DoctorEmail:     "gregory@example.com",
		Department:      "Diagnostics",
		HospitalName:    testHospital,
		AppointmentDate: futureDate(days),
		AppointmentTime: "10:30",
		Symptoms:        "persistent cough",
	}
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	svc, _, notifier := newTestService()

	apt, err := svc.Book(context.Background(), bookRequest(5), patientActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Nil(t, apt.AcceptedDate)
	assert.Nil(t, apt.ApprovedBy)

	patient, err := model.NormalizeEmbeddedPerson(apt.Patient, model.PersonRolePatient)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", patient.Email)
	assert.Equal(t, "Jane Smith", patient.Name)

	assert.Equal(t, []string{"New Appointment Request"}, notifier.titlesFor("gregory@example.com"))
	assert.Equal(t, []string{"New Appointment Request"}, notifier.titlesFor("admin@example.com"))
	assert.Equal(t, []string{"Appointment Request Submitted"}, notifier.titlesFor("jane@example.com"))
}

func TestBookAdminConfirmsImmediately(t *testing.T) {
	svc, _, notifier := newTestService()
	req := bookRequest(5)

	apt, err := svc.Book(context.Background(), req, adminActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusApproved, apt.Status)
	require.NotNil(t, apt.AcceptedDate)
	assert.Equal(t, req.AppointmentDate, *apt.AcceptedDate)
	require.NotNil(t, apt.AcceptedTime)
	assert.Equal(t, req.AppointmentTime, *apt.AcceptedTime)
	require.NotNil(t, apt.ApprovedBy)
	assert.Equal(t, adminActor.Email, *apt.ApprovedBy)
	require.NotNil(t, apt.ApprovedAt)

	assert.Equal(t, []string{"Appointment Confirmed"}, notifier.titlesFor("jane@example.com"))
	assert.Equal(t, []string{"New Appointment Scheduled"}, notifier.titlesFor("gregory@example.com"))
}

func TestBookDuplicateSlotConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Book(ctx, bookRequest(5), patientActor)
	require.NoError(t, err)

	_, err = svc.Book(ctx, bookRequest(5), patientActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestBookPastDateFails(t *testing.T) {
	svc, _, _ := newTestService()
	req := bookRequest(5)
	req.AppointmentDate = time.Now().AddDate(0, 0, -1).Format(validator.DateLayout)

	_, err := svc.Book(context.Background(), req, patientActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestBookTodayAllowed(t *testing.T) {
	svc, _, _ := newTestService()
	req := bookRequest(0) // the local calendar date is not "in the past"

	apt, err := svc.Book(context.Background(), req, patientActor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
}

func TestBookUnknownDoctorNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	req := bookRequest(5)
	req.DoctorEmail = "nobody@example.com"

	_, err := svc.Book(context.Background(), req, patientActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestBookOnBehalfOfOtherPatientForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	other := model.Actor{Email: "someone@example.com", Role: model.RolePatient, HospitalName: testHospital}

	_, err := svc.Book(context.Background(), bookRequest(5), other)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func bookPending(t *testing.T, svc *Service, days int) *model.Appointment {
	t.Helper()
	apt, err := svc.Book(context.Background(), bookRequest(days), patientActor)
	require.NoError(t, err)
	return apt
}

func TestDecideApproveRequestedSlot(t *testing.T) {
	svc, _, notifier := newTestService()
	apt := bookPending(t, svc, 5)

	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
	}, doctorActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusApproved, updated.Status)
	require.NotNil(t, updated.AcceptedDate)
	assert.Equal(t, apt.AppointmentDate, *updated.AcceptedDate)
	require.NotNil(t, updated.AcceptedTime)
	assert.Equal(t, apt.RequestedTime, *updated.AcceptedTime)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, doctorActor.Email, *updated.ApprovedBy)

	last := notifier.lastFor("jane@example.com")
	require.NotNil(t, last)
	assert.Equal(t, "Appointment Approved", last.Title)
}

func TestDecideRescheduleWithinWindowApproves(t *testing.T) {
	svc, _, notifier := newTestService()
	apt := bookPending(t, svc, 5)

	confirmed := futureDate(8) // three days after the requested date
	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
		ConfirmedDate: confirmed,
		ConfirmedTime: "14:00",
	}, doctorActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusApproved, updated.Status)
	require.NotNil(t, updated.AcceptedDate)
	assert.Equal(t, confirmed, *updated.AcceptedDate)
	assert.Equal(t, apt.AppointmentDate, updated.AppointmentDate, "requested date is preserved")

	last := notifier.lastFor("jane@example.com")
	require.NotNil(t, last)
	assert.Equal(t, "Appointment Approved", last.Title)
	assert.Contains(t, last.Message, "contact the hospital")
}

func TestDecideRescheduleBeyondWindowRejects(t *testing.T) {
	svc, _, notifier := newTestService()
	apt := bookPending(t, svc, 5)

	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
		ConfirmedDate: futureDate(13), // eight days past the requested date
		ConfirmedTime: "14:00",
	}, doctorActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusRejected, updated.Status)
	assert.Nil(t, updated.AcceptedDate)
	require.NotNil(t, updated.RejectionReason)
	assert.Contains(t, *updated.RejectionReason, "7 days")
	assert.Contains(t, *updated.RejectionReason, "claim charging amount")

	last := notifier.lastFor("jane@example.com")
	require.NotNil(t, last)
	assert.Equal(t, "Appointment Rejected", last.Title)
}

func TestDecideRescheduleToEarlierDateRejects(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
		ConfirmedDate: futureDate(3),
		ConfirmedTime: "14:00",
	}, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRejected, updated.Status)
}

func TestDecideSameDayDifferentTimeRejects(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	// a changed slot on the same day is still a reschedule, and a zero-day
	// delta falls outside the window
	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
		ConfirmedDate: apt.AppointmentDate,
		ConfirmedTime: "16:00",
	}, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRejected, updated.Status)
}

func TestDecideRejectUsesDefaultReason(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "reject",
	}, doctorActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusRejected, updated.Status)
	require.NotNil(t, updated.RejectionReason)
	assert.Equal(t, DefaultRejectionReason, *updated.RejectionReason)
	require.NotNil(t, updated.RejectedBy)
	assert.Equal(t, doctorActor.Email, *updated.RejectedBy)
}

func TestDecideRejectCustomReason(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID:   apt.ID.String(),
		Action:          "reject",
		RejectionReason: "doctor on leave",
	}, doctorActor)
	require.NoError(t, err)
	require.NotNil(t, updated.RejectionReason)
	assert.Equal(t, "doctor on leave", *updated.RejectionReason)
}

func TestDecideNonPendingInvalidState(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)
	ctx := context.Background()

	_, err := svc.Decide(ctx, &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "approve"}, doctorActor)
	require.NoError(t, err)

	_, err = svc.Decide(ctx, &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "reject"}, doctorActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))
	assert.Contains(t, err.Error(), "already approved")
}

func TestDecideOtherDoctorForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)
	other := model.Actor{Email: "other@example.com", Role: model.RoleDoctor, HospitalName: testHospital}

	_, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "approve"}, other)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestDecideAdminOtherHospitalForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)
	other := model.Actor{Email: "admin2@example.com", Role: model.RoleAdmin, HospitalName: "Other Hospital"}

	_, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "approve"}, other)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestDecidePatientForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	_, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "approve"}, patientActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestDecideConfirmedDateOnlyKeepsRequestedTime(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	confirmed := futureDate(8) // three days after the requested date
	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
		ConfirmedDate: confirmed,
	}, doctorActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusApproved, updated.Status)
	require.NotNil(t, updated.AcceptedDate)
	assert.Equal(t, confirmed, *updated.AcceptedDate)
	require.NotNil(t, updated.AcceptedTime)
	assert.Equal(t, apt.RequestedTime, *updated.AcceptedTime)
}

func TestDecideConfirmedTimeOnlyRejects(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	// the date defaults to the requested one, so a changed time alone is a
	// zero-day reschedule and falls outside the window
	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
		ConfirmedTime: "16:00",
	}, doctorActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusRejected, updated.Status)
	assert.Nil(t, updated.AcceptedDate)
	require.NotNil(t, updated.RejectionReason)
	assert.Contains(t, *updated.RejectionReason, "claim charging amount")
}

func TestDecideLostRaceReportsCurrentState(t *testing.T) {
	svc, repo, _ := newTestService()
	apt := bookPending(t, svc, 5)

	// simulate a concurrent decision winning between the read and the update
	zero := int64(0)
	repo.transitionRows = &zero

	_, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "approve"}, doctorActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))
}

func TestDecideLegacyFlatSnapshotAuthorizes(t *testing.T) {
	svc, repo, _ := newTestService()

	// row migrated from the legacy flat document shape
	apt := &model.Appointment{
		ID:              uuid.New(),
		HospitalName:    testHospital,
		Department:      "Diagnostics",
		AppointmentDate: futureDate(5),
		RequestedTime:   "10:30",
		Patient:         model.EmbeddedPerson(`{"patientName": "Jane Smith", "patient_email": "jane@example.com"}`),
		Doctor:          model.EmbeddedPerson(`{"doctorEmail": "gregory@example.com", "doctor_name": "Gregory House"}`),
		Status:          model.AppointmentStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), apt))

	updated, err := svc.Decide(context.Background(), &model.DecideAppointmentRequest{
		AppointmentID: apt.ID.String(),
		Action:        "approve",
	}, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusApproved, updated.Status)
}

func TestCancelPendingByPatient(t *testing.T) {
	svc, _, notifier := newTestService()
	apt := bookPending(t, svc, 5)

	updated, err := svc.Cancel(context.Background(), apt.ID, &model.CancelAppointmentRequest{Reason: "feeling better"}, patientActor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)
	require.NotNil(t, updated.CancelledBy)
	assert.Equal(t, patientActor.Email, *updated.CancelledBy)
	require.NotNil(t, updated.CancellationReason)
	assert.Equal(t, "feeling better", *updated.CancellationReason)

	last := notifier.lastFor("gregory@example.com")
	require.NotNil(t, last)
	assert.Equal(t, "Appointment Cancelled", last.Title)
}

func TestCancelApprovedByAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)
	ctx := context.Background()

	_, err := svc.Decide(ctx, &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "approve"}, doctorActor)
	require.NoError(t, err)

	updated, err := svc.Cancel(ctx, apt.ID, nil, adminActor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)
}

func TestCancelRejectedInvalidState(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)
	ctx := context.Background()

	_, err := svc.Decide(ctx, &model.DecideAppointmentRequest{AppointmentID: apt.ID.String(), Action: "reject"}, doctorActor)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, apt.ID, nil, patientActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))
}

func TestCancelOtherPatientForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)
	other := model.Actor{Email: "someone@example.com", Role: model.RolePatient, HospitalName: testHospital}

	_, err := svc.Cancel(context.Background(), apt.ID, nil, other)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestRecordPaymentAppendsLedgerEntry(t *testing.T) {
	svc, _, _ := newTestService()
	apt := bookPending(t, svc, 5)

	updated, err := svc.RecordPayment(context.Background(), apt.ID, &model.RecordPaymentRequest{
		PaymentID: "pay_123",
		Amount:    500,
	}, patientActor)
	require.NoError(t, err)

	require.Len(t, updated.Payments, 1)
	assert.Equal(t, "pay_123", updated.Payments[0].PaymentID)
	assert.Equal(t, 500.0, updated.Payments[0].Amount)
	assert.Equal(t, "consultation", updated.Payments[0].PaymentType)
	assert.Equal(t, "completed", updated.Payments[0].Status)
}

func TestRecordPaymentUnknownAppointment(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.RecordPayment(context.Background(), uuid.New(), &model.RecordPaymentRequest{PaymentID: "pay_1", Amount: 100}, adminActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListMineForAdminForbidden(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ListMine(context.Background(), adminActor, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestListMineFiltersStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first := bookPending(t, svc, 5)
	req := bookRequest(6)
	req.AppointmentTime = "11:30"
	_, err := svc.Book(ctx, req, patientActor)
	require.NoError(t, err)

	_, err = svc.Decide(ctx, &model.DecideAppointmentRequest{AppointmentID: first.ID.String(), Action: "approve"}, doctorActor)
	require.NoError(t, err)

	approved, err := svc.ListMine(ctx, patientActor, "approved")
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)

	all, err := svc.ListMine(ctx, patientActor, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListMineUnknownStatusFails(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ListMine(context.Background(), patientActor, "wobbly")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestListPendingAdminOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	bookPending(t, svc, 5)

	pending, err := svc.ListPending(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.ListPending(ctx, doctorActor)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}
