package xerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert patient: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(wrapped))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(ErrNotFound))
	assert.Equal(t, "unknown", ParsePGErrorCode(nil))
}

func TestIsDataException(t *testing.T) {
	assert.True(t, IsDataException(fmt.Errorf("insert event: %w", &pgconn.PgError{Code: "22021"})))
	assert.True(t, IsDataException(&pgconn.PgError{Code: "22P02"}))

	assert.False(t, IsDataException(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsDataException(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsDataException(errors.New("connection reset")))
}
