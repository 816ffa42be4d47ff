package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	PrescriptionStatusActive    PrescriptionStatus = "active"
	PrescriptionStatusInvoiced  PrescriptionStatus = "invoiced"
	PrescriptionStatusCompleted PrescriptionStatus = "completed"
)

// Prescription is the clinical record produced once per completed
// appointment. It feeds the downstream invoicing process; billing itself
// happens outside this service.
type Prescription struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	AppointmentID uuid.UUID          `db:"appointment_id" json:"appointmentId"`
	Patient       PersonSnapshot     `db:"patient" json:"patient"`
	Doctor        PersonSnapshot     `db:"doctor" json:"doctor"`
	HospitalName  string             `db:"hospital_name" json:"hospitalName"`
	Department    string             `db:"department" json:"department"`
	Vitals        Vitals             `db:"vitals" json:"vitals"`
	Medicines     MedicineList       `db:"medicines" json:"medicines"`
	Suggestions   string             `db:"suggestions" json:"suggestions"`
	Reports       Reports            `db:"reports" json:"reports"`
	Status        PrescriptionStatus `db:"status" json:"status"`
	InvoiceID     *string            `db:"invoice_id" json:"invoiceId"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updatedAt"`
	InvoicedAt    *time.Time         `db:"invoiced_at" json:"invoicedAt"`
}

// Vitals is a fixed-shape record; no keys beyond these are accepted.
type Vitals struct {
	BloodPressure *string `json:"bloodPressure"`
	HeartRate     *string `json:"heartRate"`
	Temperature   *string `json:"temperature"`
	Weight        *string `json:"weight"`
	Height        *string `json:"height"`
	OxygenLevel   *string `json:"oxygenLevel"`
}

func (v Vitals) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *Vitals) Scan(src interface{}) error {
	return scanJSON(src, v)
}

type Medicine struct {
	MedicineID string  `json:"medicineId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Dosage     string  `json:"dosage"`
	Duration   string  `json:"duration"`
	Price      float64 `json:"price"`
}

type MedicineList []Medicine

func (l MedicineList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Medicine{})
	}
	return json.Marshal(l)
}

func (l *MedicineList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type ReportType string

const (
	ReportTypeNone       ReportType = "none"
	ReportTypeBloodTest  ReportType = "blood_test"
	ReportTypeXRay       ReportType = "xray"
	ReportTypeCTScan     ReportType = "ct_scan"
	ReportTypeMRI        ReportType = "mri"
	ReportTypeUltrasound ReportType = "ultrasound"
	ReportTypeECG        ReportType = "ecg"
	ReportTypeOther      ReportType = "other"
)

var validReportTypes = map[ReportType]bool{
	ReportTypeNone:       true,
	ReportTypeBloodTest:  true,
	ReportTypeXRay:       true,
	ReportTypeCTScan:     true,
	ReportTypeMRI:        true,
	ReportTypeUltrasound: true,
	ReportTypeECG:        true,
	ReportTypeOther:      true,
}

func (t ReportType) Valid() bool {
	return validReportTypes[t]
}

type Reports struct {
	ReportType   ReportType      `json:"reportType"`
	ReportValues json.RawMessage `json:"reportValues"`
}

func (r Reports) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *Reports) Scan(src interface{}) error {
	return scanJSON(src, r)
}

// CreatePrescriptionRequest carries the doctor's prescription payload.
// Medicines, vitals and reports are taken as raw JSON so the service can
// report the offending index/field instead of a generic bind error.
type CreatePrescriptionRequest struct {
	AppointmentID  string            `json:"appointmentId" binding:"required,uuid"`
	PatientAge     *int              `json:"patientAge"`
	PatientPhone   *string           `json:"patientPhone"`
	PatientAddress *string           `json:"patientAddress"`
	Vitals         map[string]string `json:"vitals"`
	Medicines      json.RawMessage   `json:"medicines"`
	Suggestions    string            `json:"suggestions"`
	Reports        *Reports          `json:"reports"`
}

type MarkInvoicedRequest struct {
	InvoiceID string `json:"invoiceId" binding:"required"`
}

// PrescriptionFilters narrows hospital-scoped prescription listings.
type PrescriptionFilters struct {
	Status        PrescriptionStatus
	InvoiceID     string
	AppointmentID string
	DoctorEmail   string
	PatientEmail  string
	Date          string
}
