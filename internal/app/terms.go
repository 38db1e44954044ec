package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"horse.fit/folio/internal/records"
)

func runTerms(args []string) int {
	if len(args) == 0 {
		printTermsUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printTermsUsage()
		return 0
	case "show":
		return runTermsShow(args[1:])
	case "save":
		return runTermsSave(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown terms action: %s\n\n", args[0])
		printTermsUsage()
		return 2
	}
}

func runTermsShow(args []string) int {
	fs := flag.NewFlagSet("terms show", flag.ContinueOnError)
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

	terms, err := store.CustomTerms(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read custom terms: %v\n", err)
		return 1
	}
	if strings.TrimSpace(terms) == "" {
		fmt.Println("no custom terms saved")
		return 0
	}
	fmt.Println(terms)
	return 0
}

func runTermsSave(args []string) int {
	fs := flag.NewFlagSet("terms save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", ".", "Working directory containing the record ledger")
	file := fs.String("file", "", "Read the glossary from a file instead of stdin")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var raw []byte
	var err error
	if *file != "" {
		raw, err = os.ReadFile(*file)
	} else {
		raw, err = readAllStdin()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read glossary: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := records.Open(ctx, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open record ledger: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.SaveCustomTerms(ctx, string(raw)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save custom terms: %v\n", err)
		return 1
	}
	fmt.Println("custom terms saved")
	return 0
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no input on stdin (pipe the glossary or use --file)")
	}
	return io.ReadAll(os.Stdin)
}

func printTermsUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  folio terms show [--dir .]")
	fmt.Fprintln(os.Stderr, "  folio terms save [--dir .] [--file glossary.txt]")
}
