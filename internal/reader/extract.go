package reader

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

// ExtractFile converts one saved HTML page into clean chapter text.
func ExtractFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return Extract(raw, path)
}

// Extract pulls the readable body out of HTML content. Plain text input is
// only normalized.
func Extract(content []byte, sourcePath string) (string, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("content is empty")
	}

	if !looksLikeHTML(trimmed) {
		return CleanText(string(trimmed)), nil
	}

	// readability wants a base URL for link resolution; a file URL is enough
	// for local chapters.
	pageURL := &url.URL{Scheme: "file", Path: "/" + filepath.ToSlash(sourcePath)}

	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		return "", fmt.Errorf("reader extracted empty content")
	}
	return text, nil
}

func looksLikeHTML(content []byte) bool {
	head := strings.ToLower(string(content[:min(len(content), 512)]))
	return strings.Contains(head, "<html") ||
		strings.Contains(head, "<!doctype") ||
		strings.Contains(head, "<body") ||
		strings.Contains(head, "<p>")
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
