package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	xerrors "pulsetrack/shared/utils/errors"
)

const DateLayout = "2006-01-02"

type BillingStatus string

const (
	BillingPending BillingStatus = "PENDING"
	BillingActive  BillingStatus = "ACTIVE"
	BillingFailed  BillingStatus = "FAILED"
)

type Patient struct {
	ID               string
	Name             string
	Email            string
	Address          string
	DateOfBirth      time.Time
	RegisteredDate   time.Time
	BillingStatus    BillingStatus
	BillingAccountID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PatientRequest is the body of create and update calls. Dates use
// YYYY-MM-DD. RegisteredDate is only mandatory on create.
type PatientRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	DateOfBirth    string `json:"dateOfBirth"`
	RegisteredDate string `json:"registeredDate,omitempty"`
}

// PatientInput is a validated PatientRequest.
type PatientInput struct {
	Name           string
	Email          string
	Address        string
	DateOfBirth    time.Time
	RegisteredDate *time.Time
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{xerrors.ErrInvalidInput}, args...)...)
}

func (r PatientRequest) Validate(requireRegistered bool) (PatientInput, error) {
	in := PatientInput{
		Name:    strings.TrimSpace(r.Name),
		Email:   strings.TrimSpace(r.Email),
		Address: strings.TrimSpace(r.Address),
	}
	if in.Name == "" {
		return PatientInput{}, invalid("name is required")
	}
	if len(in.Name) > 100 {
		return PatientInput{}, invalid("name cannot exceed 100 characters")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return PatientInput{}, invalid("email should be valid")
	}
	if in.Address == "" {
		return PatientInput{}, invalid("address is required")
	}

	dob, err := time.Parse(DateLayout, strings.TrimSpace(r.DateOfBirth))
	if err != nil {
		return PatientInput{}, invalid("dateOfBirth must be YYYY-MM-DD")
	}
	in.DateOfBirth = dob

	if reg := strings.TrimSpace(r.RegisteredDate); reg != "" {
		t, err := time.Parse(DateLayout, reg)
		if err != nil {
			return PatientInput{}, invalid("registeredDate must be YYYY-MM-DD")
		}
		in.RegisteredDate = &t
	} else if requireRegistered {
		return PatientInput{}, invalid("registeredDate is required")
	}
	return in, nil
}

// PatientDTO is the JSON view of a Patient.
type PatientDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	DateOfBirth      string `json:"dateOfBirth"`
	RegisteredDate   string `json:"registeredDate"`
	BillingStatus    string `json:"billingStatus"`
	BillingAccountID string `json:"billingAccountId,omitempty"`
}

func ToDTO(p *Patient) PatientDTO {
	return PatientDTO{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Address:          p.Address,
		DateOfBirth:      p.DateOfBirth.Format(DateLayout),
		RegisteredDate:   p.RegisteredDate.Format(DateLayout),
		BillingStatus:    string(p.BillingStatus),
		BillingAccountID: p.BillingAccountID,
	}
}

// CreateResult carries the created patient plus the provisioning outcome.
// BillingErr is set when the account could not be provisioned synchronously;
// creation itself still succeeded.
type CreateResult struct {
	Patient    *Patient
	BillingErr error
}
