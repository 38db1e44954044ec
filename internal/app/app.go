package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "translate":
		return runTranslate(args[1:])
	case "files":
		return runFiles(args[1:])
	case "clean":
		return runClean(args[1:])
	case "import":
		return runImport(args[1:])
	case "records":
		return runRecords(args[1:])
	case "terms":
		return runTerms(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "models":
		return runModels(args[1:])
	case "token":
		return runToken(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "folio CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  folio <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  translate  Translate chapter files in a working directory")
	fmt.Fprintln(os.Stderr, "  files      List chapters and their translation status")
	fmt.Fprintln(os.Stderr, "  clean      Apply cleanup transformations to chapter files")
	fmt.Fprintln(os.Stderr, "  import     Convert saved HTML pages into chapter text files")
	fmt.Fprintln(os.Stderr, "  records    Show or clear the translation ledger")
	fmt.Fprintln(os.Stderr, "  terms      Show or save the custom terms glossary")
	fmt.Fprintln(os.Stderr, "  languages  List supported languages")
	fmt.Fprintln(os.Stderr, "  models     List available provider models")
	fmt.Fprintln(os.Stderr, "  token      Hash an API token for serve authentication")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"folio <command> -h\" for command-specific flags.")
}
