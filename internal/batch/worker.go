package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/folio/internal/langdetect"
	"horse.fit/folio/internal/records"
	"horse.fit/folio/internal/translator"
)

// tempPrefix names the sibling temp file a commit goes through. Deriving the
// temp name from the target filename keeps concurrent batches on different
// files from colliding.
const tempPrefix = ".temp_"

// defaultPaceInterval is the unconditional pause between files, respecting
// provider rate limits.
const defaultPaceInterval = 5 * time.Second

// worker executes one batch sequentially: skip check, translate, atomic
// commit, record, pacing. Files are never processed concurrently.
type worker struct {
	job            Job
	workDir        string
	store          records.Store
	provider       translator.Provider
	bus            *EventBus
	statusCallback StatusCallback
	logger         zerolog.Logger

	pause         func(ctx context.Context)
	stopRequested atomic.Bool

	readFile  func(name string) ([]byte, error)
	writeFile func(name string, data []byte, perm os.FileMode) error
	rename    func(oldpath, newpath string) error
	remove    func(name string) error
}

func newWorker(
	job Job,
	workDir string,
	store records.Store,
	provider translator.Provider,
	bus *EventBus,
	statusCallback StatusCallback,
	logger zerolog.Logger,
) *worker {
	return &worker{
		job:            job,
		workDir:        workDir,
		store:          store,
		provider:       provider,
		bus:            bus,
		statusCallback: statusCallback,
		logger:         logger,
		pause:          pacePause(defaultPaceInterval),
		readFile:       os.ReadFile,
		writeFile:      os.WriteFile,
		rename:         os.Rename,
		remove:         os.Remove,
	}
}

// requestStop asks the loop to terminate before the next file. Idempotent and
// safe from any goroutine; in-flight file work is allowed to finish.
func (w *worker) requestStop() {
	w.stopRequested.Store(true)
}

func (w *worker) stopped(ctx context.Context) bool {
	if w.stopRequested.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// run processes the batch and returns its terminal status. The batch event
// fires exactly once no matter how the run ends.
func (w *worker) run(ctx context.Context) Status {
	defer w.bus.Publish(Event{Type: EventTypeBatch})

	status := StatusCompleted
	total := len(w.job.Files)
	successful := 0

	err := func() (loopErr error) {
		defer func() {
			if r := recover(); r != nil {
				loopErr = fmt.Errorf("panic: %v", r)
			}
		}()

		for i, task := range w.job.Files {
			if w.stopped(ctx) {
				status = StatusStopped
				return nil
			}

			w.progress(fmt.Sprintf("translating file %d of %d: %s", i+1, total, task.Name))

			done, err := w.store.IsTranslated(ctx, task.Name)
			if err != nil {
				return fmt.Errorf("check record for %s: %w", task.Name, err)
			}
			if done {
				w.logger.Debug().Str("file", task.Name).Msg("already translated, skipping")
				continue
			}

			if w.translateFile(ctx, task.Name) {
				successful++
				if err := w.store.AddRecord(ctx, task.Name, w.job.SourceLang, w.job.TargetLang); err != nil {
					w.error(fmt.Sprintf("record %s: %v", task.Name, err))
				}
				w.fileCompleted(task.Name, true)
			} else {
				w.fileCompleted(task.Name, false)
			}

			if i+1 < total && !w.stopped(ctx) {
				w.pause(ctx)
			}
		}
		return nil
	}()

	if err != nil {
		status = StatusFailed
		w.logger.Error().Err(err).Msg("batch run failed")
		w.error(fmt.Sprintf("translation run failed: %v", err))
		return status
	}

	if status != StatusStopped {
		w.progress(fmt.Sprintf("batch complete: %d of %d succeeded", successful, total))
	}
	return status
}

// translateFile performs the translate-and-commit sequence for one chapter.
// The visible file only ever changes through the final rename, so it holds
// either the old content or the full translation.
func (w *worker) translateFile(ctx context.Context, name string) bool {
	inputPath := filepath.Join(w.workDir, name)
	tempPath := filepath.Join(w.workDir, tempPrefix+name)

	raw, err := w.readFile(inputPath)
	if err != nil {
		w.error(fmt.Sprintf("translate %s: %v", name, err))
		return false
	}
	text := string(raw)

	sourceLang := w.job.SourceLang
	if strings.EqualFold(strings.TrimSpace(sourceLang), "auto") {
		if detected := langdetect.DetectISO6391(text); detected != "" {
			sourceLang = detected
		}
	}

	resp, err := w.provider.Translate(ctx, translator.Request{
		Text:        text,
		SourceLang:  sourceLang,
		TargetLang:  w.job.TargetLang,
		APIKey:      w.job.APIKey,
		Model:       w.job.Model,
		CustomTerms: w.job.CustomTerms,
		SegmentSize: w.job.SegmentSize,
	})
	if err != nil {
		w.error(fmt.Sprintf("translate %s: %v", name, err))
		return false
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		w.error(fmt.Sprintf("translate %s: no translation obtained", name))
		return false
	}

	if err := w.writeFile(tempPath, []byte(resp.Text), 0o644); err != nil {
		w.error(fmt.Sprintf("translate %s: %v", name, err))
		w.removeTemp(tempPath)
		return false
	}
	if err := w.rename(tempPath, inputPath); err != nil {
		w.error(fmt.Sprintf("translate %s: %v", name, err))
		w.removeTemp(tempPath)
		return false
	}
	return true
}

// removeTemp is best-effort cleanup; its failure never masks the error that
// led here.
func (w *worker) removeTemp(path string) {
	if err := w.remove(path); err != nil && !os.IsNotExist(err) {
		w.logger.Warn().Err(err).Str("path", path).Msg("temp file cleanup failed")
	}
}

// pacePause waits the pacing interval, returning early on cancellation.
func pacePause(interval time.Duration) func(ctx context.Context) {
	return func(ctx context.Context) {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
}

func (w *worker) progress(message string) {
	w.bus.Publish(Event{Type: EventTypeProgress, Message: message})
}

func (w *worker) error(message string) {
	w.bus.Publish(Event{Type: EventTypeError, Message: message})
}

func (w *worker) fileCompleted(name string, success bool) {
	w.bus.Publish(Event{Type: EventTypeFile, Filename: name, Success: success})
	if w.statusCallback != nil {
		label := StatusLabelTranslated
		if !success {
			label = StatusLabelError
		}
		w.statusCallback(name, label)
	}
}
