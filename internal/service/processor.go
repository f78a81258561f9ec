package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/llm"
	"github.com/CaseMark/multi-language-processor/internal/ocr"
	"github.com/CaseMark/multi-language-processor/internal/persistence"
	"github.com/CaseMark/multi-language-processor/internal/translate"
	"github.com/CaseMark/multi-language-processor/internal/vault"
	"github.com/CaseMark/multi-language-processor/pkg/log"
)

// Store is the persistence surface the processor needs.
// *persistence.SQLiteStore satisfies it.
type Store interface {
	SaveDocument(ctx context.Context, pair document.Pair) error
	SaveBatchCheckpoint(ctx context.Context, jobID string, batchStart int, batchEnd int, translatedLines []string) error
	LoadBatchCheckpoints(ctx context.Context, jobID string) ([]persistence.BatchCheckpoint, error)
	DeleteJobData(ctx context.Context, jobID string) error
}

// Processor executes one document job end to end: fetch bytes, OCR,
// detect the source language, translate, persist, index, and tag the
// vault object so the sweeper does not pick it up again.
type Processor struct {
	corpus *document.Corpus
	store  Store
	ocr    *ocr.Client
	vault  *vault.Client

	batchSize   int
	concurrency int
	glossaryDir string

	mu         sync.RWMutex
	detector   *translate.Detector
	translator *translate.Translator
	targetLang string
}

func NewProcessor(
	corpus *document.Corpus,
	store Store,
	ocrClient *ocr.Client,
	vaultClient *vault.Client,
	llmClient *llm.Client,
	targetLang string,
	batchSize int,
	concurrency int,
	glossaryDir string,
) *Processor {
	p := &Processor{
		corpus:      corpus,
		store:       store,
		ocr:         ocrClient,
		vault:       vaultClient,
		batchSize:   batchSize,
		concurrency: concurrency,
		glossaryDir: glossaryDir,
	}
	p.ApplyRuntimeSettings(llmClient, targetLang)
	return p
}

// ApplyRuntimeSettings swaps the LLM-backed stages. Jobs already
// running keep the clients they started with.
func (p *Processor) ApplyRuntimeSettings(llmClient *llm.Client, targetLang string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detector = translate.NewDetector(llmClient)
	p.translator = translate.NewTranslator(llmClient, p.store, p.batchSize, p.concurrency)
	if p.glossaryDir != "" {
		p.translator.SetGlossaryDir(p.glossaryDir)
	}
	p.targetLang = targetLang
}

func (p *Processor) stages() (*translate.Detector, *translate.Translator, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.detector, p.translator, p.targetLang
}

// Execute satisfies jobs.Executor.
func (p *Processor) Execute(ctx context.Context, job *jobs.ProcessingJob) error {
	detector, translator, targetLang := p.stages()

	data, err := p.documentBytes(ctx, job)
	if err != nil {
		return err
	}

	ocrJobID, err := p.ocr.Submit(ctx, job.Payload.Filename, data)
	if err != nil {
		return fmt.Errorf("submit ocr for %s: %w", job.Payload.Filename, err)
	}
	ocrResult, err := p.ocr.Wait(ctx, ocrJobID)
	if err != nil {
		return fmt.Errorf("wait for ocr of %s: %w", job.Payload.Filename, err)
	}
	log.Info("OCR finished for %s: %d bytes of text, confidence %.2f",
		job.Payload.Filename, len(ocrResult.Text), ocrResult.Confidence)

	sourceLang := detector.Detect(ctx, ocrResult.Text)

	translated, err := p.translateText(ctx, translator, job.ID, ocrResult.Text, sourceLang, targetLang)
	if err != nil {
		return err
	}

	pair := document.Pair{
		ID:               job.Payload.DocumentID,
		Filename:         job.Payload.Filename,
		VaultKey:         job.Payload.VaultKey,
		OriginalText:     ocrResult.Text,
		TranslatedText:   translated,
		OriginalLanguage: sourceLang,
		OCRConfidence:    ocrResult.Confidence,
		CreatedAt:        time.Now().UTC(),
	}
	if err := p.store.SaveDocument(ctx, pair); err != nil {
		return fmt.Errorf("save document %s: %w", pair.ID, err)
	}
	p.corpus.Add(pair)

	if job.Payload.VaultKey != "" {
		meta := map[string]string{
			"document_id":       pair.ID,
			"original_language": sourceLang,
			"translated":        "true",
		}
		if err := p.vault.PatchMetadata(ctx, job.Payload.VaultKey, meta); err != nil {
			// The document is already indexed; the sweeper may requeue it
			// but the dedupe key prevents double processing.
			log.Warn("patch vault metadata for %s: %v", job.Payload.VaultKey, err)
		}
	}

	if err := p.store.DeleteJobData(ctx, job.ID); err != nil {
		log.Warn("clear checkpoints for %s: %v", job.ID, err)
	}
	p.cleanupLocal(job)

	log.Info("Processed document %s (%s → %s)", pair.ID, sourceLang, targetLang)
	return nil
}

// documentBytes reads the staged upload if present, otherwise fetches
// the object from the vault. Sweep jobs never have a local path.
func (p *Processor) documentBytes(ctx context.Context, job *jobs.ProcessingJob) ([]byte, error) {
	if job.Payload.LocalPath != "" {
		data, err := os.ReadFile(job.Payload.LocalPath)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read staged upload %s: %w", job.Payload.LocalPath, err)
		}
		log.Warn("staged upload %s is gone, falling back to vault", job.Payload.LocalPath)
	}
	if job.Payload.VaultKey == "" {
		return nil, fmt.Errorf("job %s has neither local path nor vault key", job.ID)
	}
	obj, err := p.vault.Get(ctx, job.Payload.VaultKey)
	if err != nil {
		return nil, fmt.Errorf("fetch vault object %s: %w", job.Payload.VaultKey, err)
	}
	return obj.Data, nil
}

func (p *Processor) translateText(
	ctx context.Context,
	translator *translate.Translator,
	jobID string,
	text string,
	sourceLang string,
	targetLang string,
) (string, error) {
	if text == "" {
		return "", nil
	}
	if sourceLang == targetLang {
		// Already in the target language, keep the text as both sides.
		return text, nil
	}

	lines := splitLines(text)
	resumed, err := p.loadResumedBatches(ctx, jobID)
	if err != nil {
		log.Warn("load checkpoints for %s: %v", jobID, err)
	}
	translated, err := translator.TranslateLines(ctx, jobID, lines, sourceLang, targetLang, resumed)
	if err != nil {
		return "", fmt.Errorf("translate document: %w", err)
	}
	return joinLines(translated), nil
}

func (p *Processor) loadResumedBatches(ctx context.Context, jobID string) ([]translate.Checkpoint, error) {
	stored, err := p.store.LoadBatchCheckpoints(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ret := make([]translate.Checkpoint, 0, len(stored))
	for _, cp := range stored {
		ret = append(ret, translate.Checkpoint{
			BatchStart:      cp.BatchStart,
			BatchEnd:        cp.BatchEnd,
			TranslatedLines: cp.TranslatedLines,
		})
	}
	return ret, nil
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func (p *Processor) cleanupLocal(job *jobs.ProcessingJob) {
	if job.Payload.LocalPath == "" {
		return
	}
	if err := os.Remove(job.Payload.LocalPath); err != nil && !os.IsNotExist(err) {
		log.Warn("remove staged upload %s: %v", job.Payload.LocalPath, err)
	}
}
