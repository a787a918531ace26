package xerrors

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation    = "23505"
	pgDataExceptionClass = "22"
)

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsUniqueViolation reports whether err carries a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == pgUniqueViolation
}

// IsDataException reports whether err is a postgres class 22 error such as
// invalid_text_representation or character_not_in_repertoire. Those fail the
// same way on every attempt.
func IsDataException(err error) bool {
	return strings.HasPrefix(ParsePGErrorCode(err), pgDataExceptionClass)
}

// Generic
var (
	ErrInvalidInput = errors.New("invalid input provided")
	ErrNotFound     = errors.New("not found")
)

// Token
var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrEmptySubject     = errors.New("token subject is empty")
	ErrInvalidRole      = errors.New("token role is not recognised")
	ErrWeakSecret       = errors.New("signing secret must be at least 256 bits")
)

// Registration / Login
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Patients
var (
	ErrDuplicateEmail      = errors.New("a patient with this email already exists")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrPersistenceConflict = errors.New("patient write conflicts with an existing record")
)

// Billing RPC
var (
	ErrBillingUnavailable = errors.New("billing service unavailable")
)

// Messaging
var (
	ErrProtocolDecode = errors.New("failed to decode event payload")
	ErrPublishFailure = errors.New("failed to publish event")
)
