package service

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/vault"
	"github.com/CaseMark/multi-language-processor/pkg/file"
	"github.com/CaseMark/multi-language-processor/pkg/icron"
	"github.com/CaseMark/multi-language-processor/pkg/log"
)

// staleUploadAge is how long a staged upload may sit on disk before the
// sweeper deletes it. Finished jobs remove their own staged files; this
// catches the ones orphaned by crashes.
const staleUploadAge = 24 * time.Hour

// Sweeper reconciles the vault against the corpus on a cron schedule:
// any object not yet marked translated gets a processing job. Runs are
// guarded by singleflight so an overdue tick never overlaps a slow one.
type Sweeper struct {
	cronExpr   string
	cron       *cron.Cron
	vault      *vault.Client
	corpus     *document.Corpus
	queue      *jobs.Queue
	uploadDir  string
	targetLang func() string

	group singleflight.Group

	mu      sync.Mutex
	lastRun time.Time
}

func NewSweeper(
	cronExpr string,
	c *cron.Cron,
	vaultClient *vault.Client,
	corpus *document.Corpus,
	queue *jobs.Queue,
	uploadDir string,
	targetLang func() string,
) *Sweeper {
	return &Sweeper{
		cronExpr:   cronExpr,
		cron:       c,
		vault:      vaultClient,
		corpus:     corpus,
		queue:      queue,
		uploadDir:  uploadDir,
		targetLang: targetLang,
	}
}

// Schedule registers the sweep on the cron instance. The caller owns
// starting and stopping the cron.
func (s *Sweeper) Schedule(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if _, err, _ := s.group.Do("sweep", func() (any, error) {
			return nil, s.RunOnce(ctx)
		}); err != nil {
			log.Error("Vault sweep failed: %v", err)
		}
	})
	return err
}

// RunOnce lists the vault and enqueues jobs for untranslated objects,
// then prunes stale staged uploads.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	s.lastRun = time.Now().UTC()
	s.mu.Unlock()

	objects, err := s.vault.List(ctx)
	if err != nil {
		return err
	}

	indexed := make(map[string]bool)
	for _, pair := range s.corpus.List() {
		indexed[pair.VaultKey] = true
	}

	enqueued := 0
	for _, obj := range objects {
		if obj.Metadata["translated"] == "true" || indexed[obj.Key] {
			continue
		}
		documentID := obj.Metadata["document_id"]
		if documentID == "" {
			documentID = uuid.NewString()
		}
		_, created := s.queue.Enqueue(jobs.EnqueueRequest{
			Source:    "sweep",
			DedupeKey: obj.Key + "|" + s.targetLang(),
			Payload: jobs.JobPayload{
				DocumentID: documentID,
				Filename:   path.Base(obj.Key),
				VaultKey:   obj.Key,
			},
		})
		if created {
			enqueued++
		}
	}
	log.Info("Vault sweep: %d objects, %d jobs enqueued", len(objects), enqueued)

	s.pruneStaleUploads()
	return nil
}

func (s *Sweeper) pruneStaleUploads() {
	if s.uploadDir == "" {
		return
	}
	stale, err := file.FindOlderThan(s.uploadDir, time.Now().Add(-staleUploadAge))
	if err != nil {
		log.Warn("scan upload dir %s: %v", s.uploadDir, err)
		return
	}
	removed := file.RemoveAll(stale)
	if removed > 0 {
		log.Info("Pruned %d stale staged uploads", removed)
	}
}

// TriggerInfo reports the sweep schedule for the status endpoint.
type TriggerInfo struct {
	Expression string    `json:"expression"`
	LastRun    time.Time `json:"last_run,omitzero"`
	Next       time.Time `json:"next"`
}

func (s *Sweeper) TriggerInfo(now time.Time) (TriggerInfo, error) {
	schedule, err := icron.GetTriggerInfo(s.cronExpr, now)
	if err != nil {
		return TriggerInfo{}, err
	}
	s.mu.Lock()
	lastRun := s.lastRun
	s.mu.Unlock()
	if lastRun.IsZero() {
		lastRun = schedule.Last
	}
	return TriggerInfo{
		Expression: s.cronExpr,
		LastRun:    lastRun,
		Next:       schedule.Next,
	}, nil
}
