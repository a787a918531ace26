package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PT_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("PT_TIMEOUT", "250ms")
	t.Setenv("PT_BAD_TIMEOUT", "soon")
	t.Setenv("PT_FLAG", "false")
	t.Setenv("PT_BLANK_LIST", " , ")

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, GetEnvSlice("PT_BROKERS", nil))
	assert.Equal(t, []string{"x"}, GetEnvSlice("PT_MISSING", []string{"x"}))
	assert.Equal(t, []string{"x"}, GetEnvSlice("PT_BLANK_LIST", []string{"x"}))
	assert.Equal(t, 250*time.Millisecond, GetEnvDuration("PT_TIMEOUT", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("PT_BAD_TIMEOUT", time.Second))
	assert.False(t, GetEnvBool("PT_FLAG", true))
	assert.Equal(t, 7, GetEnvInt("PT_MISSING", 7))
	assert.Equal(t, "fallback", GetEnv("PT_MISSING", "fallback"))
}

func TestLoadDBConfigAssemblesURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "")

	cfg := LoadDBConfig("patients")
	assert.Equal(t, "postgres://svc:pw@db:5433/patients?sslmode=disable", cfg.URL)
}
