package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/folio/internal/library"
	"horse.fit/folio/internal/records"
)

func runFiles(args []string) int {
	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	dir := fs.String("dir", ".", "Working directory containing chapter files")
	pendingOnly := fs.Bool("pending", false, "List only chapters without a translation record")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := records.Open(ctx, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open record ledger: %v\n", err)
		return 1
	}
	defer store.Close()

	chapters, err := library.List(ctx, *dir, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list chapters: %v\n", err)
		return 1
	}

	shown := 0
	for _, chapter := range chapters {
		if *pendingOnly && chapter.Status != library.StatusPending {
			continue
		}
		fmt.Printf("%-12s %s\n", chapter.Status, chapter.Name)
		shown++
	}
	fmt.Printf("%d chapters\n", shown)
	return 0
}
