package main

import (
	"bytes"
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryTargetEmbedsMigrations(t *testing.T) {
	for name, tg := range targets {
		files, err := fs.Glob(tg.fsys, "*.sql")
		require.NoError(t, err, name)
		assert.NotEmpty(t, files, name)
	}
}

func TestUnknownServiceIsRejected(t *testing.T) {
	cmd := newRootCmd(context.Background())
	cmd.SetArgs([]string{"status", "--service", "billing"})
	cmd.SetOut(new(bytes.Buffer))

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown service "billing"`)
}

func TestServiceFlagIsRequired(t *testing.T) {
	cmd := newRootCmd(context.Background())
	cmd.SetArgs([]string{"up"})
	cmd.SetOut(new(bytes.Buffer))

	assert.Error(t, cmd.Execute())
}

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []*goose.MigrationStatus{
		{Source: &goose.Source{Version: 1, Path: "00001_create_patients.sql"}, State: goose.StateApplied, AppliedAt: applied},
		{Source: &goose.Source{Version: 2, Path: "00002_next.sql"}, State: goose.StatePending},
	})

	out := buf.String()
	assert.Contains(t, out, "00001_create_patients.sql")
	assert.Contains(t, out, "2025-01-02 03:04:05")
	assert.Contains(t, out, "pending")
}
