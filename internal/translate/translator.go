package translate

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CaseMark/multi-language-processor/internal/glossary"
	"github.com/CaseMark/multi-language-processor/internal/llm"
	"github.com/CaseMark/multi-language-processor/pkg/log"
)

// Checkpoint is a completed translation batch carried over from a
// previous run of the same job.
type Checkpoint struct {
	BatchStart      int
	BatchEnd        int
	TranslatedLines []string
}

// Translator translates document lines in fixed-size batches with
// bounded concurrency. Each batch is an independent LLM call under a
// strict indexed-JSON output contract.
type Translator struct {
	llm         *llm.Client
	checkpoints batchCheckpointer
	batchSize   int
	concurrency int
	glossaryDir string
}

// batchCheckpointer is the persistence surface the translator needs.
// *persistence.SQLiteStore satisfies it.
type batchCheckpointer interface {
	SaveBatchCheckpoint(ctx context.Context, jobID string, batchStart int, batchEnd int, translatedLines []string) error
}

func NewTranslator(client *llm.Client, checkpoints batchCheckpointer, batchSize int, concurrency int) *Translator {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Translator{
		llm:         client,
		checkpoints: checkpoints,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// SetGlossaryDir points the translator at a directory of per-language-pair
// glossary files. Terms from the matching glossary that occur in the input
// are pinned to fixed translations in the prompt.
func (t *Translator) SetGlossaryDir(dir string) {
	t.glossaryDir = dir
}

// TranslateLines translates lines from sourceLang to targetLang,
// preserving count and order. Ranges already present in resumed are
// reused instead of being sent to the model; newly translated batches
// are written through to the checkpoint store keyed by jobID.
func (t *Translator) TranslateLines(
	ctx context.Context,
	jobID string,
	lines []string,
	sourceLang string,
	targetLang string,
	resumed []Checkpoint,
) ([]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	out := make([]string, len(lines))
	done := make(map[int]bool)
	for _, cp := range resumed {
		// Only reuse checkpoints that line up with the current batch grid;
		// a config change between runs invalidates old ranges.
		if cp.BatchStart < 0 || cp.BatchStart%t.batchSize != 0 {
			continue
		}
		if cp.BatchEnd != min(cp.BatchStart+t.batchSize, len(lines)) || cp.BatchEnd-cp.BatchStart != len(cp.TranslatedLines) {
			continue
		}
		copy(out[cp.BatchStart:cp.BatchEnd], cp.TranslatedLines)
		done[cp.BatchStart] = true
	}

	systemPrompt := t.buildSystemPrompt(sourceLang, targetLang, t.matchedTerms(sourceLang, targetLang, lines))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(t.concurrency)
	var mu sync.Mutex

	for start := 0; start < len(lines); start += t.batchSize {
		if done[start] {
			continue
		}
		start := start
		end := min(start+t.batchSize, len(lines))
		grp.Go(func() error {
			translated, err := t.translateBatch(grpCtx, systemPrompt, lines[start:end])
			if err != nil {
				return fmt.Errorf("translate lines %d-%d: %w", start+1, end, err)
			}
			if t.checkpoints != nil {
				if err := t.checkpoints.SaveBatchCheckpoint(grpCtx, jobID, start, end, translated); err != nil {
					log.Warn("save batch checkpoint %d-%d for %s: %v", start, end, jobID, err)
				}
			}
			mu.Lock()
			copy(out[start:end], translated)
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Translator) translateBatch(ctx context.Context, systemPrompt string, batch []string) ([]string, error) {
	userMessage, err := buildTranslationUserMessage(batch)
	if err != nil {
		return nil, err
	}
	content, err := t.llm.SimpleChat(ctx, userMessage, systemPrompt)
	if err != nil {
		return nil, err
	}
	return parseTranslationOutput(content, len(batch))
}

// matchedTerms loads the glossary for the language pair (if any) and keeps
// only the terms that actually occur in lines.
func (t *Translator) matchedTerms(sourceLang string, targetLang string, lines []string) glossary.Glossary {
	if t.glossaryDir == "" {
		return nil
	}
	path := glossary.FilePath(t.glossaryDir, sourceLang, targetLang)
	g, err := glossary.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("load glossary %s: %v", path, err)
		}
		return nil
	}
	return glossary.Match(g, lines)
}

func (t *Translator) buildSystemPrompt(sourceLang string, targetLang string, terms glossary.Glossary) string {
	var prompt strings.Builder

	prompt.WriteString("You are a professional document translation service. ")
	prompt.WriteString("Translate OCR-extracted document lines from " + sourceLang + " to " + targetLang + ".\n\n")

	prompt.WriteString("=== INPUT FORMAT ===\n")
	prompt.WriteString("The user message is a JSON object {\"lines\": [{\"index\": N, \"text\": \"...\"}, ...]} with 1-based indexes.\n")

	prompt.WriteString("\n=== HARD RULES ===\n")
	prompt.WriteString("1. Do NOT merge, split, reorder, or drop lines: output exactly one entry per input index.\n")
	prompt.WriteString("2. If an input line is empty, output text for that index MUST be an empty string.\n")
	prompt.WriteString("3. Preserve numbers, dates, identifiers, and formatting characters verbatim.\n")
	prompt.WriteString("4. OCR artifacts (stray characters, broken words) should be translated by intent, not reproduced.\n")
	prompt.WriteString("5. Do NOT output literal newline characters in JSON text values.\n")

	if len(terms) > 0 {
		sources := make([]string, 0, len(terms))
		for source := range terms {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		prompt.WriteString("\n=== TERMINOLOGY ===\n")
		prompt.WriteString("Use these exact translations wherever the term appears:\n")
		for _, source := range sources {
			prompt.WriteString(fmt.Sprintf("- %q -> %q\n", source, terms[source]))
		}
	}

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY a JSON array [{\"index\": N, \"text\": \"...\"}, ...] covering every input index.\n")
	prompt.WriteString("No explanations, no markdown fences, no additional text.\n")

	return prompt.String()
}
