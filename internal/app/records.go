package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/folio/internal/records"
)

func runRecords(args []string) int {
	if len(args) == 0 {
		printRecordsUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printRecordsUsage()
		return 0
	case "list":
		return runRecordsList(args[1:])
	case "clear":
		return runRecordsClear(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown records action: %s\n\n", args[0])
		printRecordsUsage()
		return 2
	}
}

func runRecordsList(args []string) int {
	fs := flag.NewFlagSet("records list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", ".", "Working directory containing the record ledger")

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

	rows, err := store.Records(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list records: %v\n", err)
		return 1
	}

	for _, row := range rows {
		fmt.Printf("%s\t%s->%s\t%s\n", row.Filename, row.SourceLang, row.TargetLang, row.TranslatedAt.Format(time.RFC3339))
	}
	fmt.Printf("%d records\n", len(rows))
	return 0
}

func runRecordsClear(args []string) int {
	fs := flag.NewFlagSet("records clear", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", ".", "Working directory containing the record ledger")

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

	if err := store.ClearRecords(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clear records: %v\n", err)
		return 1
	}
	fmt.Println("records cleared")
	return 0
}

func printRecordsUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  folio records list [--dir .]")
	fmt.Fprintln(os.Stderr, "  folio records clear [--dir .]")
}
