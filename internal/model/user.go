package model

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient  Role = "Patient"
	RoleDoctor   Role = "Doctor"
	RoleAdmin    Role = "Admin"
	RoleSupplier Role = "Supplier"
)

// User is an identity-directory record. Registration, OTP verification and
// credential handling live in the identity service; this backend only reads.
type User struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Role           Role      `db:"role" json:"role"`
	HospitalName   string    `db:"hospital_name" json:"hospitalName"`
	Gender         *string   `db:"gender" json:"gender"`
	DateOfBirth    *string   `db:"date_of_birth" json:"dateOfBirth"`
	ContactNo      *string   `db:"contact_no" json:"contactNo"`
	Specialization *string   `db:"specialization" json:"specialization"`
}

// Snapshot freezes the user's directory fields for embedding.
func (u *User) Snapshot() PersonSnapshot {
	return PersonSnapshot{
		ID:             u.ID.String(),
		Name:           u.Name,
		Email:          u.Email,
		Gender:         u.Gender,
		DateOfBirth:    u.DateOfBirth,
		ContactNo:      u.ContactNo,
		Specialization: u.Specialization,
	}
}

// Actor is the already-authenticated caller identity. Authentication happens
// at the edge; services only enforce role and ownership rules.
type Actor struct {
	Email        string
	Role         Role
	HospitalName string
}

// SameEmail compares actor identity to an email, case-insensitively.
func (a Actor) SameEmail(email string) bool {
	return strings.EqualFold(a.Email, email)
}
