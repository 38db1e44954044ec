package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/folio/internal/clean"
	"horse.fit/folio/internal/library"
	"horse.fit/folio/internal/records"
)

func runClean(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	dir := fs.String("dir", ".", "Working directory containing chapter files")
	modeFlag := fs.String("mode", "", "Cleanup mode (see folio clean -h)")
	searchText := fs.String("search", "", "Search text for the selected mode")
	replaceText := fs.String("replace", "", "Replacement text for search-replace")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: folio clean --mode <mode> [flags] [files...]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Without positional files every chapter in the directory is cleaned.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Modes:")
		for _, mode := range clean.Modes() {
			fmt.Fprintf(os.Stderr, "  %s\n", mode)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	mode, err := clean.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	files := fs.Args()
	if len(files) == 0 {
		files, err = allChapterNames(*dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to clean: no chapter files found")
		return 1
	}

	result, errs := clean.CleanFiles(*dir, files, mode, *searchText, *replaceText)
	for _, cleanErr := range errs {
		fmt.Fprintln(os.Stderr, cleanErr)
	}
	fmt.Printf("%d files processed, %d modified\n", result.Processed, result.Modified)
	if len(errs) > 0 {
		return 1
	}
	return 0
}

func allChapterNames(dir string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := records.Open(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("open record ledger: %w", err)
	}
	defer store.Close()

	chapters, err := library.List(ctx, dir, store)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	names := make([]string, 0, len(chapters))
	for _, chapter := range chapters {
		names = append(names, chapter.Name)
	}
	return names, nil
}
