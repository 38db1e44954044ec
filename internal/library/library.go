package library

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"horse.fit/folio/internal/records"
)

// Chapter statuses reported alongside directory listings.
const (
	StatusTranslated = "translated"
	StatusPending    = "pending"
)

// Chapter is one .txt file of the working directory with its ledger status.
type Chapter struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Size   int64  `json:"size"`
}

// List returns the .txt chapters of a directory sorted by name, each marked
// translated or pending from the record store.
func List(ctx context.Context, dir string, store records.Store) ([]Chapter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	chapters := make([]Chapter, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		status := StatusPending
		if store != nil {
			done, err := store.IsTranslated(ctx, entry.Name())
			if err != nil {
				return nil, err
			}
			if done {
				status = StatusTranslated
			}
		}

		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}

		chapters = append(chapters, Chapter{
			Name:   entry.Name(),
			Status: status,
			Size:   size,
		})
	}

	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].Name < chapters[j].Name
	})
	return chapters, nil
}
