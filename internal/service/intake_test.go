package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaseMark/multi-language-processor/internal/jobs"
)

func TestIntake_ReceiveStagesAndEnqueues(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	queue := jobs.NewQueue(1, nil)
	uploadDir := t.TempDir()

	intake := NewIntake(uploadDir, fv.client(t), queue, func() string { return "en" })

	job, created, err := intake.Receive(context.Background(), "scan.pdf", []byte("%PDF fake"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "upload", job.Source)
	assert.Equal(t, "uploads/scan.pdf|en", job.DedupeKey)
	assert.Equal(t, "scan.pdf", job.Payload.Filename)
	assert.Equal(t, "uploads/scan.pdf", job.Payload.VaultKey)
	assert.NotEmpty(t, job.Payload.DocumentID)

	assert.True(t, fv.hasObject("uploads/scan.pdf"))
	data, err := os.ReadFile(job.Payload.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF fake"), data)
	assert.Equal(t, uploadDir, filepath.Dir(job.Payload.LocalPath))
}

func TestIntake_DuplicateUploadDedupes(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	queue := jobs.NewQueue(1, nil)
	intake := NewIntake(t.TempDir(), fv.client(t), queue, func() string { return "en" })

	first, created, err := intake.Receive(context.Background(), "scan.pdf", []byte("v1"), "application/pdf")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := intake.Receive(context.Background(), "scan.pdf", []byte("v2"), "application/pdf")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// The duplicate's staged copy is cleaned up; the first one remains.
	_, err = os.Stat(first.Payload.LocalPath)
	assert.NoError(t, err)
	require.Len(t, queue.List(), 1)
}

func TestIntake_RejectsBadInput(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	intake := NewIntake(t.TempDir(), fv.client(t), jobs.NewQueue(1, nil), func() string { return "en" })

	_, _, err := intake.Receive(context.Background(), "scan.pdf", nil, "application/pdf")
	require.Error(t, err)

	_, _, err = intake.Receive(context.Background(), "..", []byte("data"), "application/pdf")
	require.Error(t, err)
}
