package document

import "time"

// Pair is one processed document: the OCR'd original text plus its
// English translation. Both sides are immutable once set; a fresh
// translation replaces the whole record.
type Pair struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	VaultKey         string    `json:"vault_key,omitempty"`
	OriginalText     string    `json:"original_text"`
	TranslatedText   string    `json:"translated_text"`
	OriginalLanguage string    `json:"original_language"`
	OCRConfidence    float64   `json:"ocr_confidence,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary is the listing view of a Pair, without the full texts.
type Summary struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	VaultKey         string    `json:"vault_key,omitempty"`
	OriginalLanguage string    `json:"original_language"`
	OriginalChars    int       `json:"original_chars"`
	TranslatedChars  int       `json:"translated_chars"`
	CreatedAt        time.Time `json:"created_at"`
}

func (p Pair) Summary() Summary {
	return Summary{
		ID:               p.ID,
		Filename:         p.Filename,
		VaultKey:         p.VaultKey,
		OriginalLanguage: p.OriginalLanguage,
		OriginalChars:    len(p.OriginalText),
		TranslatedChars:  len(p.TranslatedText),
		CreatedAt:        p.CreatedAt,
	}
}
