package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"horse.fit/folio/internal/reader"
)

func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	outDir := fs.String("out", "", "Output directory for chapter files (default: alongside the source)")
	force := fs.Bool("force", false, "Overwrite existing chapter files")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: folio import [flags] <file.html> [more files...]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Extracts the readable text of saved HTML pages into .txt chapters.")
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

	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		return 2
	}

	imported := 0
	failed := 0
	for _, path := range paths {
		outPath, err := importFile(path, *outDir, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "import %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s -> %s\n", path, outPath)
		imported++
	}

	fmt.Printf("%d files imported, %d failed\n", imported, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func importFile(path, outDir string, force bool) (string, error) {
	text, err := reader.ExtractFile(path)
	if err != nil {
		return "", err
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"

	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	outPath := filepath.Join(dir, name)

	if !force {
		if _, err := os.Stat(outPath); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
		}
	}

	if err := os.WriteFile(outPath, []byte(text+"\n"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}
