package translate

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/llm"
	"github.com/CaseMark/multi-language-processor/pkg/log"
)

const detectSystemPrompt = "You are a language identification service. " +
	"Given a text sample, respond with ONLY the ISO 639-1 code of its dominant language (e.g. \"es\", \"ja\"). " +
	"No explanations, no punctuation."

// detectSampleLimit bounds how much text we send for identification.
// A few hundred characters is enough for a confident call.
const detectSampleLimit = 600

// Detector identifies the dominant language of OCR output. It asks the
// LLM first and falls back to local statistical detection when the
// response is unusable.
type Detector struct {
	llm *llm.Client
}

func NewDetector(client *llm.Client) *Detector {
	return &Detector{llm: client}
}

// Detect returns an ISO 639-1 code for the dominant language of text.
func (d *Detector) Detect(ctx context.Context, text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return language.Und.String()
	}
	if len(sample) > detectSampleLimit {
		cut := detectSampleLimit
		// Back off to a rune boundary so the sample stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(sample[cut]) {
			cut--
		}
		sample = sample[:cut]
	}

	if d.llm != nil {
		reply, err := d.llm.SimpleChat(ctx, sample, detectSystemPrompt)
		if err == nil {
			code := strings.ToLower(strings.Trim(strings.TrimSpace(reply), "\"'.`"))
			if tag, parseErr := language.Parse(code); parseErr == nil {
				return tag.String()
			}
			log.Warn("language detection returned unparseable code %q, falling back to local detection", reply)
		} else {
			log.Warn("language detection call failed, falling back to local detection: %v", err)
		}
	}

	return document.DetectLanguage(text).String()
}
