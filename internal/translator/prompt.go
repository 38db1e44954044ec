package translator

import (
	_ "embed"
	"strings"
)

//go:embed prompt_base.txt
var promptBase string

const (
	glossaryMarker          = "Use the following predefined translations for domain-specific or recurring terms. These must be used consistently throughout the translation:"
	finalInstructionsMarker = "\nFinal Instructions:"
)

// BuildPrompt renders the base template for a language pair, inserts the
// glossary block when custom terms are present, and appends the chapter text.
func BuildPrompt(text, sourceLang, targetLang, customTerms string) string {
	prompt := strings.ReplaceAll(promptBase, "{source_lang}", LanguageName(sourceLang))
	prompt = strings.ReplaceAll(prompt, "{target_lang}", LanguageName(targetLang))

	if terms := formatCustomTerms(customTerms); terms != "" {
		markerIdx := strings.Index(prompt, glossaryMarker)
		finalIdx := strings.Index(prompt, finalInstructionsMarker)
		if markerIdx >= 0 && finalIdx > markerIdx {
			pre := prompt[:markerIdx+len(glossaryMarker)]
			post := prompt[finalIdx:]
			prompt = pre + "\n" + terms + post
		}
	}

	return prompt + "\n\n" + text
}

// formatCustomTerms normalizes a glossary string so every entry is one
// "- " bullet line. Blank lines are dropped.
func formatCustomTerms(customTerms string) string {
	trimmed := strings.TrimSpace(customTerms)
	if trimmed == "" {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	terms := make([]string, 0, len(lines))
	for _, line := range lines {
		entry := strings.TrimSpace(line)
		if entry == "" {
			continue
		}
		if !strings.HasPrefix(entry, "- ") {
			entry = "- " + entry
		}
		terms = append(terms, entry)
	}
	return strings.Join(terms, "\n")
}

// CleanTranslation strips prompt echo lines some models prepend to the
// translated chapter: bullet lines and "Requirements:"/"Translation:" labels
// before the first real content line.
func CleanTranslation(text string) string {
	lines := strings.Split(text, "\n")
	actual := make([]string, 0, len(lines))
	started := false

	for _, line := range lines {
		if started || (!strings.HasPrefix(line, "-") &&
			!strings.Contains(line, "Requirements:") &&
			!strings.Contains(line, "Translation:")) {
			started = true
			actual = append(actual, line)
		}
	}

	return strings.TrimSpace(strings.Join(actual, "\n"))
}
