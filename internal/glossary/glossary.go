package glossary

import (
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
)

// Glossary maps source language terms to their required target language
// translations. Entries keep terminology consistent across translation
// batches of the same document.
type Glossary map[string]string

// Filename returns the glossary filename for the given source and target
// languages. Uses 2-letter language base codes (e.g., "es", "en").
func Filename(sourceLang, targetLang string) string {
	src := normalizeLanguageCode(sourceLang)
	tgt := normalizeLanguageCode(targetLang)
	return "glossary." + src + "-" + tgt + ".json"
}

// FilePath returns the full path to the glossary file in the given directory.
func FilePath(dir, sourceLang, targetLang string) string {
	return filepath.Join(dir, Filename(sourceLang, targetLang))
}

// Load reads a glossary from a JSON file.
func Load(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var g Glossary
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}

	return g, nil
}

// Save writes a glossary to a JSON file with indentation.
func Save(path string, g Glossary) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// normalizeLanguageCode parses a language string and returns its 2-letter base code.
func normalizeLanguageCode(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	base, _ := tag.Base()
	return base.String()
}
