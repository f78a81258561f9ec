package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/vault"
	"github.com/CaseMark/multi-language-processor/pkg/file"
	"github.com/CaseMark/multi-language-processor/pkg/log"
)

// Intake stages an uploaded document on disk, stores it in the vault,
// and enqueues a processing job. The staged copy lets the processor
// read the bytes without a vault round trip; the vault copy is the
// durable one.
type Intake struct {
	uploadDir  string
	vault      *vault.Client
	queue      *jobs.Queue
	targetLang func() string
}

func NewIntake(uploadDir string, vaultClient *vault.Client, queue *jobs.Queue, targetLang func() string) *Intake {
	return &Intake{
		uploadDir:  uploadDir,
		vault:      vaultClient,
		queue:      queue,
		targetLang: targetLang,
	}
}

// Receive accepts an uploaded document. The returned bool is false when
// an identical job is already queued or running.
func (i *Intake) Receive(ctx context.Context, filename string, data []byte, contentType string) (*jobs.ProcessingJob, bool, error) {
	if len(data) == 0 {
		return nil, false, fmt.Errorf("empty upload %q", filename)
	}
	safeName := file.SafeName(filename)
	if safeName == "" {
		return nil, false, fmt.Errorf("invalid filename %q", filename)
	}

	documentID := uuid.NewString()
	// Key by filename so re-uploading the same document while a job is
	// in flight collapses onto that job.
	vaultKey := "uploads/" + safeName

	if err := os.MkdirAll(i.uploadDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create upload dir: %w", err)
	}
	localPath := filepath.Join(i.uploadDir, documentID+"_"+safeName)
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return nil, false, fmt.Errorf("stage upload %s: %w", safeName, err)
	}

	if err := i.vault.Put(ctx, vaultKey, data, contentType); err != nil {
		_ = os.Remove(localPath)
		return nil, false, fmt.Errorf("store upload %s in vault: %w", safeName, err)
	}

	job, created := i.queue.Enqueue(jobs.EnqueueRequest{
		Source:    "upload",
		DedupeKey: vaultKey + "|" + i.targetLang(),
		Payload: jobs.JobPayload{
			DocumentID: documentID,
			Filename:   safeName,
			VaultKey:   vaultKey,
			LocalPath:  localPath,
		},
	})
	if !created {
		// A duplicate key means this exact upload is already in flight.
		_ = os.Remove(localPath)
		log.Info("Upload %s deduplicated onto job %s", safeName, job.ID)
	}
	return job, created, nil
}
