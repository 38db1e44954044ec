package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/folio/internal/batch"
	"horse.fit/folio/internal/cli"
	"horse.fit/folio/internal/config"
	"horse.fit/folio/internal/library"
	"horse.fit/folio/internal/logging"
	"horse.fit/folio/internal/manifest"
	"horse.fit/folio/internal/translator"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dir := fs.String("dir", ".", "Working directory containing chapter files")
	sourceLang := fs.String("source", "", "Source language (ISO 639-1, or auto)")
	targetLang := fs.String("target", "", "Target language (ISO 639-1)")
	provider := fs.String("provider", "", "Translation provider (gemini, together)")
	model := fs.String("model", "", "Provider model name")
	apiKey := fs.String("api-key", "", "Provider API key (default: from environment)")
	termsFile := fs.String("terms-file", "", "Path to a custom terms glossary file")
	segmentSize := fs.Int("segment-size", 0, "Characters per translation segment (0 disables)")
	manifestPath := fs.String("manifest", "", "Path to a batch manifest JSON file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	job := batch.Job{
		SourceLang:  strings.TrimSpace(*sourceLang),
		TargetLang:  strings.TrimSpace(*targetLang),
		Provider:    strings.TrimSpace(*provider),
		Model:       strings.TrimSpace(*model),
		SegmentSize: *segmentSize,
	}
	if job.Provider == "" {
		job.Provider = cfg.TranslationProvider
	}
	if job.Model == "" {
		job.Model = cfg.TranslationModel
	}
	if job.SegmentSize == 0 {
		job.SegmentSize = cfg.SegmentSize
	}

	if *manifestPath != "" {
		m, err := loadManifest(*manifestPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		for _, name := range m.Files {
			job.Files = append(job.Files, batch.FileTask{Name: name})
		}
		job.SourceLang = m.SourceLang
		job.TargetLang = m.TargetLang
		if m.Provider != "" {
			job.Provider = m.Provider
		}
		if m.Model != "" {
			job.Model = m.Model
		}
		if m.CustomTerms != "" {
			job.CustomTerms = m.CustomTerms
		}
		if m.SegmentSize > 0 {
			job.SegmentSize = m.SegmentSize
		}
	}

	source := translator.NormalizeLangCode(job.SourceLang)
	if source == "" {
		fmt.Fprintln(os.Stderr, "--source is required (a language code or auto)")
		return 2
	}
	if source != "auto" && !translator.IsSupportedLanguage(source) {
		fmt.Fprintf(os.Stderr, "Unsupported source language: %s\n", job.SourceLang)
		return 2
	}
	if !translator.IsSupportedLanguage(job.TargetLang) {
		fmt.Fprintf(os.Stderr, "Unsupported target language: %s\n", job.TargetLang)
		return 2
	}

	if *termsFile != "" {
		raw, err := os.ReadFile(*termsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read terms file: %v\n", err)
			return 2
		}
		job.CustomTerms = string(raw)
	}

	job.APIKey = strings.TrimSpace(*apiKey)
	if job.APIKey == "" {
		job.APIKey = cfg.APIKeyFor(job.Provider)
	}
	if job.APIKey == "" {
		fmt.Fprintf(os.Stderr, "No API key for provider %q: pass --api-key or set the provider environment variable\n", job.Provider)
		return 2
	}

	registry := translator.NewRegistryFromEnv()
	manager := batch.NewManager(logger, registry)
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn().Err(err).Msg("manager close failed")
		}
	}()

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()
	if err := manager.Initialize(initCtx, *dir, job.Provider, job.Model); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize working directory: %v\n", err)
		return 1
	}

	if len(job.Files) == 0 {
		job.Files, err = pendingChapters(initCtx, manager, fs.Args())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	if len(job.Files) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to translate: no chapter files found")
		return 1
	}

	events, unsubscribe := manager.Events().Subscribe(256)
	defer unsubscribe()

	if err := manager.TranslateFiles(job, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start batch: %v\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			_ = manager.StopTranslation()
		case event, ok := <-events:
			if !ok {
				return 1
			}
			printEvent(event)
			if event.Type == batch.EventTypeBatch {
				status := manager.Wait()
				fmt.Printf("batch status: %s\n", status)
				if status == batch.StatusFailed {
					return 1
				}
				return 0
			}
		}
	}
}

// pendingChapters resolves the file list: explicit positional names when
// given, otherwise every chapter of the working directory.
func pendingChapters(ctx context.Context, manager *batch.Manager, names []string) ([]batch.FileTask, error) {
	if len(names) > 0 {
		tasks := make([]batch.FileTask, 0, len(names))
		for _, name := range names {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				continue
			}
			tasks = append(tasks, batch.FileTask{Name: trimmed})
		}
		return tasks, nil
	}

	chapters, err := library.List(ctx, manager.WorkDir(), manager.Store())
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	tasks := make([]batch.FileTask, 0, len(chapters))
	for _, chapter := range chapters {
		tasks = append(tasks, batch.FileTask{Name: chapter.Name})
	}
	return tasks, nil
}

func loadManifest(path string) (*manifest.Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := manifest.Validate(json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

func printEvent(event batch.Event) {
	switch event.Type {
	case batch.EventTypeProgress:
		fmt.Println(event.Message)
	case batch.EventTypeError:
		fmt.Fprintln(os.Stderr, "error: "+event.Message)
	case batch.EventTypeFile:
		label := batch.StatusLabelTranslated
		if !event.Success {
			label = batch.StatusLabelError
		}
		fmt.Printf("%s: %s\n", event.Filename, label)
	}
}
