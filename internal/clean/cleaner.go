package clean

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Mode selects one cleanup transformation.
type Mode string

const (
	// ModeRemoveAfter drops everything from the first line starting with the
	// search text onward.
	ModeRemoveAfter Mode = "remove-after"
	// ModeRemoveDuplicates keeps only the content from the second occurrence
	// of the search text onward, for files that repeat themselves.
	ModeRemoveDuplicates Mode = "remove-duplicates"
	// ModeRemoveLine drops every line starting with the search text.
	ModeRemoveLine Mode = "remove-line"
	// ModeRemoveMultipleBlanks collapses runs of blank lines into one.
	ModeRemoveMultipleBlanks Mode = "remove-multiple-blanks"
	// ModeSearchReplace replaces the search text everywhere.
	ModeSearchReplace Mode = "search-replace"
)

// Modes lists the supported cleanup modes.
func Modes() []Mode {
	modes := []Mode{
		ModeRemoveAfter,
		ModeRemoveDuplicates,
		ModeRemoveLine,
		ModeRemoveMultipleBlanks,
		ModeSearchReplace,
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Result summarizes one CleanFiles run.
type Result struct {
	Processed int
	Modified  int
}

// CleanFiles applies one mode to a list of files inside a directory. Each
// file is rewritten in place through a temp sibling and an atomic rename.
// Per-file failures are collected, not fatal.
func CleanFiles(dir string, files []string, mode Mode, searchText, replaceText string) (Result, []error) {
	var result Result
	var errs []error

	for _, name := range files {
		path := filepath.Join(dir, name)
		modified, err := CleanFile(path, mode, searchText, replaceText)
		if err != nil {
			errs = append(errs, fmt.Errorf("clean %s: %w", name, err))
			continue
		}
		result.Processed++
		if modified {
			result.Modified++
		}
	}
	return result, errs
}

// CleanFile rewrites one file with the requested transformation. Returns
// whether the content changed.
func CleanFile(path string, mode Mode, searchText, replaceText string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	cleaned, err := Apply(string(raw), mode, searchText, replaceText)
	if err != nil {
		return false, err
	}
	if cleaned == string(raw) {
		return false, nil
	}

	tempPath := filepath.Join(filepath.Dir(path), ".temp_"+filepath.Base(path))
	if err := os.WriteFile(tempPath, []byte(cleaned), 0o644); err != nil {
		return false, err
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return false, err
	}
	return true, nil
}

// Apply runs one transformation over text and trims leading and trailing
// blank lines.
func Apply(text string, mode Mode, searchText, replaceText string) (string, error) {
	lines := splitLines(text)

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}

	switch mode {
	case ModeRemoveAfter:
		lines = removeAfter(lines, searchText)
	case ModeRemoveDuplicates:
		lines = removeDuplicates(lines, searchText)
	case ModeRemoveLine:
		lines = removeLine(lines, searchText)
	case ModeRemoveMultipleBlanks:
		lines = removeMultipleBlanks(lines)
	case ModeSearchReplace:
		lines = searchReplace(lines, searchText, replaceText)
	default:
		return "", fmt.Errorf("unsupported clean mode: %s", mode)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	return strings.Join(lines, "\n"), nil
}

func splitLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}

func removeAfter(lines []string, searchText string) []string {
	if strings.TrimSpace(searchText) == "" {
		return lines
	}
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), searchText) {
			return lines[:i]
		}
	}
	return lines
}

func removeDuplicates(lines []string, searchText string) []string {
	if strings.TrimSpace(searchText) == "" {
		return lines
	}
	var hits []int
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), searchText) {
			hits = append(hits, i)
		}
	}
	if len(hits) > 1 {
		return lines[hits[1]:]
	}
	return lines
}

func removeLine(lines []string, searchText string) []string {
	if strings.TrimSpace(searchText) == "" {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), searchText) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func removeMultipleBlanks(lines []string) []string {
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if blank && prevBlank {
			continue
		}
		out = append(out, line)
		prevBlank = blank
	}
	return out
}

func searchReplace(lines []string, searchText, replaceText string) []string {
	if searchText == "" {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.ReplaceAll(line, searchText, replaceText))
	}
	return out
}

// ParseMode validates a user-supplied mode name.
func ParseMode(raw string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Modes() {
		if mode == known {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unsupported clean mode: %s", raw)
}
