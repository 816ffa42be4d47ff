package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Mihirdhami7/hms-api/internal/model"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
)

const userColumns = `
	id, name, email, role, hospital_name, gender, date_of_birth,
	contact_no, specialization`

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindDoctorInHospital(ctx context.Context, email, hospitalName string) (*model.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) AND role = 'Doctor' AND hospital_name = $2`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email, hospitalName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("doctor")
		}
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindAdminForHospital(ctx context.Context, hospitalName string) (*model.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE role = 'Admin' AND hospital_name = $1
		ORDER BY id
		LIMIT 1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, hospitalName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("hospital admin")
		}
		return nil, fmt.Errorf("failed to find hospital admin: %w", err)
	}
	return &user, nil
}
