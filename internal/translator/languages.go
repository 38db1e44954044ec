package translator

import (
	"sort"
	"strings"
)

type LanguageOption struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
}

type languageLabel struct {
	english string
	native  string
}

var chapterLanguageLabels = map[string]languageLabel{
	"de": {english: "German", native: "Deutsch"},
	"en": {english: "English", native: "English"},
	"es": {english: "Spanish", native: "Español"},
	"fr": {english: "French", native: "Français"},
	"it": {english: "Italian", native: "Italiano"},
}

func SupportedLanguageCodes() []string {
	codes := make([]string, 0, len(chapterLanguageLabels))
	for code := range chapterLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SupportedLanguages maps language codes to English display names.
func SupportedLanguages() map[string]string {
	out := make(map[string]string, len(chapterLanguageLabels))
	for code, labels := range chapterLanguageLabels {
		out[code] = labels.english
	}
	return out
}

func LanguageOptions(registry *Registry) []LanguageOption {
	supported := map[string]struct{}{}

	for code := range chapterLanguageLabels {
		normalized := NormalizeLangCode(code)
		if normalized == "" {
			continue
		}
		supported[normalized] = struct{}{}
	}

	if registry != nil {
		for _, provider := range registry.providers {
			for _, code := range provider.SupportedLanguages() {
				normalized := NormalizeLangCode(code)
				if normalized == "" {
					continue
				}
				supported[normalized] = struct{}{}
			}
		}
	}

	codes := make([]string, 0, len(supported))
	for code := range supported {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	options := make([]LanguageOption, 0, len(codes))
	for _, code := range codes {
		labels, hasLabels := chapterLanguageLabels[code]
		if hasLabels {
			options = append(options, LanguageOption{
				Code:   code,
				Label:  labels.english,
				Native: labels.native,
			})
			continue
		}

		options = append(options, LanguageOption{
			Code:  code,
			Label: strings.ToUpper(code),
		})
	}

	return options
}

// IsSupportedLanguage reports whether a code is in the chapter catalog.
func IsSupportedLanguage(code string) bool {
	_, ok := chapterLanguageLabels[NormalizeLangCode(code)]
	return ok
}

// LanguageName resolves the English prompt label for a code, falling back to
// the raw input when unknown.
func LanguageName(code string) string {
	if labels, ok := chapterLanguageLabels[NormalizeLangCode(code)]; ok {
		return labels.english
	}
	fallback := strings.TrimSpace(code)
	if fallback == "" {
		return "English"
	}
	return fallback
}

// NormalizeLangCode lowercases and trims an ISO 639-1 code.
func NormalizeLangCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	code = strings.ReplaceAll(code, "_", "-")
	if idx := strings.Index(code, "-"); idx > 0 {
		code = code[:idx]
	}
	return code
}
