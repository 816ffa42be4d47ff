package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PersonSnapshot is an embedded copy of a user's fields, captured inline at
// creation time. Optional fields stay nil when the source record lacks them.
type PersonSnapshot struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Gender         *string `json:"gender,omitempty"`
	DateOfBirth    *string `json:"dateOfBirth,omitempty"`
	ContactNo      *string `json:"contactNo,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Age            *int    `json:"age,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Address        *string `json:"address,omitempty"`
}

func (p PersonSnapshot) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PersonSnapshot) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// EmbeddedPerson is a patient/doctor jsonb column on an appointment row.
// New rows carry the canonical PersonSnapshot shape, but rows migrated from
// legacy revisions may instead hold flat, inconsistently named fields. The
// raw bytes are kept verbatim and pass through JSON responses unchanged;
// NormalizeEmbeddedPerson is the one place that resolves the shape.
type EmbeddedPerson []byte

// NewEmbeddedPerson encodes a snapshot in the canonical nested shape.
func NewEmbeddedPerson(snap PersonSnapshot) EmbeddedPerson {
	b, _ := json.Marshal(snap)
	return b
}

func (e EmbeddedPerson) Value() (driver.Value, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return []byte(e), nil
}

func (e *EmbeddedPerson) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case []byte:
		*e = append((*e)[:0], v...)
		return nil
	case string:
		*e = append((*e)[:0], v...)
		return nil
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

func (e EmbeddedPerson) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return e, nil
}

func (e *EmbeddedPerson) UnmarshalJSON(b []byte) error {
	*e = append((*e)[:0], b...)
	return nil
}

// PaymentList stores the append-only payments array as a jsonb column.
type PaymentList []Payment

func (l PaymentList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Payment{})
	}
	return json.Marshal(l)
}

func (l *PaymentList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

const (
	PersonRolePatient = "patient"
	PersonRoleDoctor  = "doctor"
)

// legacy flat-document key aliases, in precedence order
var personAliases = map[string]map[string][]string{
	PersonRolePatient: {
		"id":        {"patientId", "patient_id", "patientID"},
		"name":      {"patientName", "patient_name", "patientFullName"},
		"email":     {"patientEmail", "patient_email"},
		"age":       {"patientAge", "patient_age", "age"},
		"gender":    {"patientGender", "patient_gender"},
		"contactNo": {"patientContact", "patientContactNo", "patientPhone", "patient_phone"},
	},
	PersonRoleDoctor: {
		"id":             {"doctorId", "doctor_id", "doctorID"},
		"name":           {"doctorName", "doctor_name"},
		"email":          {"doctorEmail", "doctor_email"},
		"specialization": {"doctorSpecialization", "doctor_specialization"},
		"contactNo":      {"doctorContact", "doctor_contact"},
	},
}

// NormalizeEmbeddedPerson resolves an embedded patient/doctor column into a
// canonical snapshot. Canonical documents decode directly; legacy flat
// documents are mapped through the alias table above, first match wins.
func NormalizeEmbeddedPerson(raw EmbeddedPerson, role string) (PersonSnapshot, error) {
	var snap PersonSnapshot

	aliases, ok := personAliases[role]
	if !ok {
		return snap, fmt.Errorf("unknown embedded person role %q", role)
	}
	if len(raw) == 0 {
		return snap, fmt.Errorf("appointment has no embedded %s", role)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return snap, fmt.Errorf("malformed embedded %s: %w", role, err)
	}

	if _, canonical := doc["email"]; canonical {
		if err := json.Unmarshal(raw, &snap); err != nil {
			return snap, fmt.Errorf("malformed embedded %s: %w", role, err)
		}
		// some canonical-era documents still used patientId/doctorId as the id key
		if snap.ID == "" {
			snap.ID = firstString(doc, aliases["id"]...)
		}
		return snap, nil
	}

	snap.ID = firstString(doc, aliases["id"]...)
	snap.Name = firstString(doc, aliases["name"]...)
	snap.Email = firstString(doc, aliases["email"]...)
	if g := firstString(doc, aliases["gender"]...); g != "" {
		snap.Gender = &g
	}
	if c := firstString(doc, aliases["contactNo"]...); c != "" {
		snap.ContactNo = &c
	}
	if s := firstString(doc, aliases["specialization"]...); s != "" {
		snap.Specialization = &s
	}
	if a, ok := firstInt(doc, aliases["age"]...); ok {
		snap.Age = &a
	}
	return snap, nil
}

func firstString(doc map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := doc[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func firstInt(doc map[string]json.RawMessage, keys ...string) (int, bool) {
	for _, k := range keys {
		raw, ok := doc[k]
		if !ok {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
