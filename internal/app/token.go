package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/folio/internal/auth"
)

func runToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: folio token <secret>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Prints the bcrypt hash to put in API_TOKEN_HASH for folio serve.")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		fs.Usage()
		return 2
	}

	hash, err := auth.HashToken(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash token: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
