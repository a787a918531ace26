package repository

import (
	"context"
	"errors"
	"fmt"

	"pulsetrack/services/patient-service/internal/domain"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const patientColumns = `id, name, email, address, date_of_birth, registered_date,
	billing_status, COALESCE(billing_account_id, ''), created_at, updated_at`

type PatientRepository struct {
	db *pgxpool.Pool
}

func NewPatientRepository(db *pgxpool.Pool) *PatientRepository {
	return &PatientRepository{db: db}
}

func scanPatient(row pgx.Row) (*domain.Patient, error) {
	p := new(domain.Patient)
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Address, &p.DateOfBirth, &p.RegisteredDate,
		&status, &p.BillingAccountID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.BillingStatus = domain.BillingStatus(status)
	return p, nil
}

func (r *PatientRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check patient email: %w", err)
	}
	return exists, nil
}

// Create inserts p; the database generates the id and timestamps.
func (r *PatientRepository) Create(ctx context.Context, p *domain.Patient) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO patients (name, email, address, date_of_birth, registered_date, billing_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Email, p.Address, p.DateOfBirth, p.RegisteredDate, string(p.BillingStatus),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrPersistenceConflict
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	p, err := scanPatient(r.db.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrPatientNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (r *PatientRepository) List(ctx context.Context) ([]*domain.Patient, error) {
	rows, err := r.db.Query(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*domain.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientRepository) Update(ctx context.Context, p *domain.Patient) error {
	err := r.db.QueryRow(ctx, `
		UPDATE patients
		SET name = $2, email = $3, address = $4, date_of_birth = $5, registered_date = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Name, p.Email, p.Address, p.DateOfBirth, p.RegisteredDate).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return xerrors.ErrPatientNotFound
		}
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrPersistenceConflict
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// UpdateBilling records the provisioning outcome for a patient.
func (r *PatientRepository) UpdateBilling(ctx context.Context, id string, status domain.BillingStatus, accountID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE patients
		SET billing_status = $2, billing_account_id = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
	`, id, string(status), accountID)
	if err != nil {
		return fmt.Errorf("update billing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrPatientNotFound
	}
	return nil
}

// ListByBillingStatus returns up to limit patients in the given status,
// oldest first.
func (r *PatientRepository) ListByBillingStatus(ctx context.Context, status domain.BillingStatus, limit int) ([]*domain.Patient, error) {
	rows, err := r.db.Query(ctx, `SELECT `+patientColumns+`
		FROM patients WHERE billing_status = $1 ORDER BY created_at LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list patients by billing status: %w", err)
	}
	defer rows.Close()

	var out []*domain.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete patient: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
