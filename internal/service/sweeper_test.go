package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/vault"
)

func TestSweeper_RunOnceEnqueuesUntranslated(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	fv.listing = []vault.Object{
		{Key: "uploads/new.pdf"},
		{Key: "uploads/done.pdf", Metadata: map[string]string{"translated": "true"}},
		{Key: "uploads/indexed.pdf"},
		{Key: "uploads/tagged.pdf", Metadata: map[string]string{"document_id": "doc-9"}},
	}

	corpus := document.NewCorpus()
	corpus.Add(document.Pair{ID: "doc-2", VaultKey: "uploads/indexed.pdf"})

	queue := jobs.NewQueue(1, nil)
	sweeper := NewSweeper("0 * * * *", cron.New(), fv.client(t), corpus, queue, "", func() string { return "en" })

	require.NoError(t, sweeper.RunOnce(context.Background()))

	list := queue.List()
	require.Len(t, list, 2)
	keys := []string{list[0].Payload.VaultKey, list[1].Payload.VaultKey}
	assert.Contains(t, keys, "uploads/new.pdf")
	assert.Contains(t, keys, "uploads/tagged.pdf")
	for _, job := range list {
		assert.Equal(t, "sweep", job.Source)
		assert.NotEmpty(t, job.Payload.DocumentID)
		assert.Empty(t, job.Payload.LocalPath)
		if job.Payload.VaultKey == "uploads/tagged.pdf" {
			assert.Equal(t, "doc-9", job.Payload.DocumentID)
		}
	}

	// A second sweep finds the same objects but the dedupe keys hold.
	require.NoError(t, sweeper.RunOnce(context.Background()))
	assert.Len(t, queue.List(), 2)
}

func TestSweeper_PrunesStaleUploads(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	uploadDir := t.TempDir()

	stalePath := filepath.Join(uploadDir, "orphan.pdf")
	freshPath := filepath.Join(uploadDir, "fresh.pdf")
	require.NoError(t, os.WriteFile(stalePath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(freshPath, []byte("x"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stalePath, past, past))

	sweeper := NewSweeper("0 * * * *", cron.New(), fv.client(t), document.NewCorpus(), jobs.NewQueue(1, nil), uploadDir, func() string { return "en" })
	require.NoError(t, sweeper.RunOnce(context.Background()))

	_, err := os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)
}

func TestSweeper_TriggerInfo(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	sweeper := NewSweeper("0 * * * *", cron.New(), fv.client(t), document.NewCorpus(), jobs.NewQueue(1, nil), "", func() string { return "en" })

	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	info, err := sweeper.TriggerInfo(now)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", info.Expression)
	next := info.Next.Sub(now)
	assert.True(t, next > 0 && next <= time.Hour, "next trigger should be within the hour, got %v", next)
	assert.False(t, info.LastRun.After(now))

	require.NoError(t, sweeper.RunOnce(context.Background()))
	info, err = sweeper.TriggerInfo(time.Now())
	require.NoError(t, err)
	assert.False(t, info.LastRun.IsZero())
}

func TestSweeper_InvalidCronExpression(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	sweeper := NewSweeper("not a cron", cron.New(), fv.client(t), document.NewCorpus(), jobs.NewQueue(1, nil), "", func() string { return "en" })

	err := sweeper.Schedule(context.Background())
	require.Error(t, err)
}
