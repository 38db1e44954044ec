package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/folio/internal/translator"
)

func runLanguages(args []string) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	registry := translator.NewRegistryFromEnv()
	for _, option := range translator.LanguageOptions(registry) {
		if option.Native != "" && option.Native != option.Label {
			fmt.Printf("%-4s %s (%s)\n", option.Code, option.Label, option.Native)
			continue
		}
		fmt.Printf("%-4s %s\n", option.Code, option.Label)
	}
	return 0
}

func runModels(args []string) int {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	provider := fs.String("provider", "", "Limit the listing to one provider")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	options := translator.Models(*provider)
	if len(options) == 0 {
		fmt.Fprintf(os.Stderr, "No models for provider %q\n", *provider)
		return 1
	}
	for _, option := range options {
		if option.MaxTokens > 0 {
			fmt.Printf("%-10s %-24s max tokens %d\n", option.Provider, option.Name, option.MaxTokens)
			continue
		}
		fmt.Printf("%-10s %s\n", option.Provider, option.Name)
	}
	return 0
}
