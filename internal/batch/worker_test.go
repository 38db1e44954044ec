package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/folio/internal/records"
	"horse.fit/folio/internal/translator"
)

type addRecordCall struct {
	filename   string
	sourceLang string
	targetLang string
}

type stubStore struct {
	mu          sync.Mutex
	translated  map[string]bool
	checkErr    error
	addErr      error
	addCalls    []addRecordCall
	customTerms string
}

func newStubStore(translated ...string) *stubStore {
	done := make(map[string]bool, len(translated))
	for _, name := range translated {
		done[name] = true
	}
	return &stubStore{translated: done}
}

func (s *stubStore) IsTranslated(_ context.Context, filename string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.translated[filename], nil
}

func (s *stubStore) AddRecord(_ context.Context, filename, sourceLang, targetLang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.addCalls = append(s.addCalls, addRecordCall{filename, sourceLang, targetLang})
	s.translated[filename] = true
	return nil
}

func (s *stubStore) Records(_ context.Context) ([]records.Record, error) {
	return nil, nil
}

func (s *stubStore) ClearRecords(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translated = map[string]bool{}
	return nil
}

func (s *stubStore) SaveCustomTerms(_ context.Context, terms string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customTerms = terms
	return nil
}

func (s *stubStore) CustomTerms(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customTerms, nil
}

func (s *stubStore) Close() error {
	return nil
}

func (s *stubStore) recordedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.addCalls))
	for _, call := range s.addCalls {
		names = append(names, call.filename)
	}
	return names
}

type stubProvider struct {
	mu       sync.Mutex
	calls    []translator.Request
	text     string
	err      error
	failFor  map[string]error
	onCall   func(req translator.Request)
	upstream func(req translator.Request) (string, error)
}

func (p *stubProvider) Translate(_ context.Context, req translator.Request) (*translator.Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	onCall := p.onCall
	p.mu.Unlock()

	if onCall != nil {
		onCall(req)
	}
	if p.upstream != nil {
		text, err := p.upstream(req)
		if err != nil {
			return nil, err
		}
		return &translator.Response{Text: text, ProviderName: "stub"}, nil
	}
	if p.err != nil {
		return nil, p.err
	}
	for marker, err := range p.failFor {
		if strings.Contains(req.Text, marker) {
			return nil, err
		}
	}
	return &translator.Response{Text: p.text, ProviderName: "stub"}, nil
}

func (p *stubProvider) Name() string {
	return "stub"
}

func (p *stubProvider) SupportedLanguages() []string {
	return []string{"en", "es"}
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// memFS backs the worker's file operations with an in-memory map.
type memFS struct {
	mu        sync.Mutex
	files     map[string]string
	writeErr  error
	renameErr error
}

func newMemFS(files map[string]string) *memFS {
	copied := make(map[string]string, len(files))
	for name, content := range files {
		copied[name] = content
	}
	return &memFS{files: copied}
}

func (m *memFS) read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func (m *memFS) write(name string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.files[name] = string(data)
	return nil
}

func (m *memFS) rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renameErr != nil {
		return m.renameErr
	}
	content, ok := m.files[oldpath]
	if !ok {
		return os.ErrNotExist
	}
	delete(m.files, oldpath)
	m.files[newpath] = content
	return nil
}

func (m *memFS) remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return os.ErrNotExist
	}
	delete(m.files, name)
	return nil
}

func (m *memFS) content(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[name]
	return content, ok
}

func (m *memFS) tempResidue() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var residue []string
	for name := range m.files {
		if strings.HasPrefix(filepath.Base(name), tempPrefix) {
			residue = append(residue, name)
		}
	}
	return residue
}

func newTestWorker(
	t *testing.T,
	job Job,
	store records.Store,
	provider translator.Provider,
	fs *memFS,
	statusCallback StatusCallback,
) (*worker, *EventBus) {
	t.Helper()

	bus := NewEventBus(0)
	w := newWorker(job, "/chapters", store, provider, bus, statusCallback, zerolog.Nop())
	w.pause = func(context.Context) {}
	w.readFile = fs.read
	w.writeFile = fs.write
	w.rename = fs.rename
	w.remove = fs.remove
	return w, bus
}

func eventsOfType(events []Event, eventType EventType) []Event {
	var out []Event
	for _, event := range events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func threeFileJob() Job {
	return Job{
		Files: []FileTask{
			{Name: "ch1.txt"},
			{Name: "ch2.txt"},
			{Name: "ch3.txt"},
		},
		SourceLang: "es",
		TargetLang: "en",
		APIKey:     "key",
		Provider:   "stub",
	}
}

func TestWorkerRun_TranslatesAndSkipsRecorded(t *testing.T) {
	t.Parallel()

	store := newStubStore("ch2.txt")
	provider := &stubProvider{text: "translated body"}
	fs := newMemFS(map[string]string{
		"/chapters/ch1.txt": "capitulo uno",
		"/chapters/ch2.txt": "capitulo dos",
		"/chapters/ch3.txt": "capitulo tres",
	})
	w, bus := newTestWorker(t, threeFileJob(), store, provider, fs, nil)

	status := w.run(context.Background())
	if status != StatusCompleted {
		t.Fatalf("unexpected status: got %s want %s", status, StatusCompleted)
	}
	if provider.callCount() != 2 {
		t.Fatalf("unexpected provider call count: got %d want 2", provider.callCount())
	}

	recorded := store.recordedFiles()
	if len(recorded) != 2 || recorded[0] != "ch1.txt" || recorded[1] != "ch3.txt" {
		t.Fatalf("unexpected recorded files: %v", recorded)
	}

	if content, _ := fs.content("/chapters/ch1.txt"); content != "translated body" {
		t.Fatalf("ch1.txt was not rewritten: %q", content)
	}
	if content, _ := fs.content("/chapters/ch2.txt"); content != "capitulo dos" {
		t.Fatalf("skipped ch2.txt changed: %q", content)
	}
	if residue := fs.tempResidue(); len(residue) != 0 {
		t.Fatalf("temp files left behind: %v", residue)
	}

	events := bus.Since(0)

	batchEvents := eventsOfType(events, EventTypeBatch)
	if len(batchEvents) != 1 {
		t.Fatalf("unexpected batch event count: got %d want 1", len(batchEvents))
	}
	if events[len(events)-1].Type != EventTypeBatch {
		t.Fatalf("batch event is not last: %+v", events[len(events)-1])
	}

	fileEvents := eventsOfType(events, EventTypeFile)
	if len(fileEvents) != 2 {
		t.Fatalf("unexpected file event count: got %d want 2", len(fileEvents))
	}
	for _, event := range fileEvents {
		if event.Filename == "ch2.txt" {
			t.Fatalf("skipped file produced a file event: %+v", event)
		}
		if !event.Success {
			t.Fatalf("unexpected failed file event: %+v", event)
		}
	}

	progress := eventsOfType(events, EventTypeProgress)
	if len(progress) == 0 {
		t.Fatal("expected progress events")
	}
	if progress[0].Message != "translating file 1 of 3: ch1.txt" {
		t.Fatalf("unexpected first progress message: %q", progress[0].Message)
	}
	summary := progress[len(progress)-1].Message
	if summary != "batch complete: 2 of 3 succeeded" {
		t.Fatalf("unexpected summary message: %q", summary)
	}
}

func TestWorkerRun_StopFinishesCurrentFileOnly(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	fs := newMemFS(map[string]string{
		"/chapters/ch1.txt": "uno",
		"/chapters/ch2.txt": "dos",
		"/chapters/ch3.txt": "tres",
	})

	provider := &stubProvider{text: "done"}
	w, bus := newTestWorker(t, threeFileJob(), store, provider, fs, nil)
	provider.onCall = func(translator.Request) {
		w.requestStop()
	}

	status := w.run(context.Background())
	if status != StatusStopped {
		t.Fatalf("unexpected status: got %s want %s", status, StatusStopped)
	}
	if provider.callCount() != 1 {
		t.Fatalf("stop did not halt the loop: %d provider calls", provider.callCount())
	}

	if content, _ := fs.content("/chapters/ch1.txt"); content != "done" {
		t.Fatalf("in-flight file was not committed: %q", content)
	}
	if content, _ := fs.content("/chapters/ch2.txt"); content != "dos" {
		t.Fatalf("file after stop changed: %q", content)
	}

	events := bus.Since(0)
	if got := len(eventsOfType(events, EventTypeBatch)); got != 1 {
		t.Fatalf("unexpected batch event count: got %d want 1", got)
	}
	for _, event := range eventsOfType(events, EventTypeProgress) {
		if strings.HasPrefix(event.Message, "batch complete") {
			t.Fatalf("stopped run emitted a summary: %q", event.Message)
		}
	}
}

func TestWorkerRun_EmptyTranslationLeavesOriginal(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{text: "   \n  "}
	fs := newMemFS(map[string]string{"/chapters/ch1.txt": "texto original"})
	job := Job{
		Files:      []FileTask{{Name: "ch1.txt"}},
		SourceLang: "es",
		TargetLang: "en",
	}
	w, bus := newTestWorker(t, job, store, provider, fs, nil)

	status := w.run(context.Background())
	if status != StatusCompleted {
		t.Fatalf("unexpected status: got %s want %s", status, StatusCompleted)
	}

	if content, _ := fs.content("/chapters/ch1.txt"); content != "texto original" {
		t.Fatalf("original content changed: %q", content)
	}
	if recorded := store.recordedFiles(); len(recorded) != 0 {
		t.Fatalf("failed file was recorded: %v", recorded)
	}
	if residue := fs.tempResidue(); len(residue) != 0 {
		t.Fatalf("temp files left behind: %v", residue)
	}

	events := bus.Since(0)
	errorEvents := eventsOfType(events, EventTypeError)
	if len(errorEvents) != 1 {
		t.Fatalf("unexpected error event count: got %d want 1", len(errorEvents))
	}
	if !strings.Contains(errorEvents[0].Message, "no translation obtained") {
		t.Fatalf("unexpected error message: %q", errorEvents[0].Message)
	}

	fileEvents := eventsOfType(events, EventTypeFile)
	if len(fileEvents) != 1 || fileEvents[0].Success {
		t.Fatalf("unexpected file events: %+v", fileEvents)
	}
}

func TestWorkerRun_PerFileFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{
		text:    "translated",
		failFor: map[string]error{"uno": fmt.Errorf("quota exceeded")},
	}
	fs := newMemFS(map[string]string{
		"/chapters/ch1.txt": "uno",
		"/chapters/ch2.txt": "dos",
	})
	job := Job{
		Files:      []FileTask{{Name: "ch1.txt"}, {Name: "ch2.txt"}},
		SourceLang: "es",
		TargetLang: "en",
	}

	var callbackMu sync.Mutex
	labels := map[string]string{}
	w, bus := newTestWorker(t, job, store, provider, fs, func(name, status string) {
		callbackMu.Lock()
		labels[name] = status
		callbackMu.Unlock()
	})

	status := w.run(context.Background())
	if status != StatusCompleted {
		t.Fatalf("unexpected status: got %s want %s", status, StatusCompleted)
	}

	callbackMu.Lock()
	defer callbackMu.Unlock()
	if labels["ch1.txt"] != StatusLabelError {
		t.Fatalf("unexpected ch1.txt label: %q", labels["ch1.txt"])
	}
	if labels["ch2.txt"] != StatusLabelTranslated {
		t.Fatalf("unexpected ch2.txt label: %q", labels["ch2.txt"])
	}

	progress := eventsOfType(bus.Since(0), EventTypeProgress)
	summary := progress[len(progress)-1].Message
	if summary != "batch complete: 1 of 2 succeeded" {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestWorkerRun_RecordCheckFailureFailsBatch(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.checkErr = fmt.Errorf("ledger is corrupt")
	provider := &stubProvider{text: "translated"}
	fs := newMemFS(map[string]string{"/chapters/ch1.txt": "uno"})
	job := Job{Files: []FileTask{{Name: "ch1.txt"}}, SourceLang: "es", TargetLang: "en"}
	w, bus := newTestWorker(t, job, store, provider, fs, nil)

	status := w.run(context.Background())
	if status != StatusFailed {
		t.Fatalf("unexpected status: got %s want %s", status, StatusFailed)
	}
	if provider.callCount() != 0 {
		t.Fatalf("provider called despite ledger failure: %d", provider.callCount())
	}

	events := bus.Since(0)
	errorEvents := eventsOfType(events, EventTypeError)
	if len(errorEvents) != 1 {
		t.Fatalf("unexpected error event count: got %d want 1", len(errorEvents))
	}
	if !strings.Contains(errorEvents[0].Message, "translation run failed") {
		t.Fatalf("unexpected error message: %q", errorEvents[0].Message)
	}
	if got := len(eventsOfType(events, EventTypeBatch)); got != 1 {
		t.Fatalf("unexpected batch event count: got %d want 1", got)
	}
}

func TestWorkerRun_CommitFailureCleansTemp(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{text: "translated"}
	fs := newMemFS(map[string]string{"/chapters/ch1.txt": "uno"})
	fs.renameErr = fmt.Errorf("device full")
	job := Job{Files: []FileTask{{Name: "ch1.txt"}}, SourceLang: "es", TargetLang: "en"}
	w, bus := newTestWorker(t, job, store, provider, fs, nil)

	status := w.run(context.Background())
	if status != StatusCompleted {
		t.Fatalf("unexpected status: got %s want %s", status, StatusCompleted)
	}

	if content, _ := fs.content("/chapters/ch1.txt"); content != "uno" {
		t.Fatalf("original content changed: %q", content)
	}
	if residue := fs.tempResidue(); len(residue) != 0 {
		t.Fatalf("temp files left behind: %v", residue)
	}
	if recorded := store.recordedFiles(); len(recorded) != 0 {
		t.Fatalf("failed commit was recorded: %v", recorded)
	}

	fileEvents := eventsOfType(bus.Since(0), EventTypeFile)
	if len(fileEvents) != 1 || fileEvents[0].Success {
		t.Fatalf("unexpected file events: %+v", fileEvents)
	}
}

func TestWorkerRun_RecordWriteFailureStillCountsSuccess(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.addErr = fmt.Errorf("disk io error")
	provider := &stubProvider{text: "translated"}
	fs := newMemFS(map[string]string{"/chapters/ch1.txt": "uno"})
	job := Job{Files: []FileTask{{Name: "ch1.txt"}}, SourceLang: "es", TargetLang: "en"}
	w, bus := newTestWorker(t, job, store, provider, fs, nil)

	status := w.run(context.Background())
	if status != StatusCompleted {
		t.Fatalf("unexpected status: got %s want %s", status, StatusCompleted)
	}

	if content, _ := fs.content("/chapters/ch1.txt"); content != "translated" {
		t.Fatalf("translation was not committed: %q", content)
	}

	events := bus.Since(0)
	fileEvents := eventsOfType(events, EventTypeFile)
	if len(fileEvents) != 1 || !fileEvents[0].Success {
		t.Fatalf("unexpected file events: %+v", fileEvents)
	}
	errorEvents := eventsOfType(events, EventTypeError)
	if len(errorEvents) != 1 || !strings.Contains(errorEvents[0].Message, "record ch1.txt") {
		t.Fatalf("unexpected error events: %+v", errorEvents)
	}
}

func TestWorkerRun_PacesBetweenFilesOnly(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{text: "translated"}
	fs := newMemFS(map[string]string{
		"/chapters/ch1.txt": "uno",
		"/chapters/ch2.txt": "dos",
		"/chapters/ch3.txt": "tres",
	})
	w, _ := newTestWorker(t, threeFileJob(), store, provider, fs, nil)

	pauses := 0
	w.pause = func(context.Context) { pauses++ }

	if status := w.run(context.Background()); status != StatusCompleted {
		t.Fatalf("unexpected status: %s", status)
	}
	// No pause after the last file.
	if pauses != 2 {
		t.Fatalf("unexpected pause count: got %d want 2", pauses)
	}
}

func TestWorkerRun_SkippedFileConsumesNoPacing(t *testing.T) {
	t.Parallel()

	store := newStubStore("ch2.txt")
	provider := &stubProvider{text: "translated"}
	fs := newMemFS(map[string]string{
		"/chapters/ch1.txt": "uno",
		"/chapters/ch2.txt": "dos",
		"/chapters/ch3.txt": "tres",
	})
	w, _ := newTestWorker(t, threeFileJob(), store, provider, fs, nil)

	pauses := 0
	w.pause = func(context.Context) { pauses++ }

	if status := w.run(context.Background()); status != StatusCompleted {
		t.Fatalf("unexpected status: %s", status)
	}
	// Only file 1 is followed by a pause: file 2 is skipped and file 3 is
	// last.
	if pauses != 1 {
		t.Fatalf("unexpected pause count: got %d want 1", pauses)
	}
}

func TestWorkerRun_NoPacingAfterStop(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{text: "translated"}
	fs := newMemFS(map[string]string{
		"/chapters/ch1.txt": "uno",
		"/chapters/ch2.txt": "dos",
		"/chapters/ch3.txt": "tres",
	})
	w, _ := newTestWorker(t, threeFileJob(), store, provider, fs, nil)
	provider.onCall = func(translator.Request) {
		w.requestStop()
	}

	pauses := 0
	w.pause = func(context.Context) { pauses++ }

	if status := w.run(context.Background()); status != StatusStopped {
		t.Fatalf("unexpected status: %s", status)
	}
	if pauses != 0 {
		t.Fatalf("unexpected pause count: got %d want 0", pauses)
	}
}

func TestWorkerRun_CancelledContextStops(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{text: "translated"}
	fs := newMemFS(map[string]string{"/chapters/ch1.txt": "uno"})
	job := Job{Files: []FileTask{{Name: "ch1.txt"}}, SourceLang: "es", TargetLang: "en"}
	w, bus := newTestWorker(t, job, store, provider, fs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := w.run(ctx)
	if status != StatusStopped {
		t.Fatalf("unexpected status: got %s want %s", status, StatusStopped)
	}
	if provider.callCount() != 0 {
		t.Fatalf("provider called after cancellation: %d", provider.callCount())
	}
	if got := len(eventsOfType(bus.Since(0), EventTypeBatch)); got != 1 {
		t.Fatalf("unexpected batch event count: got %d want 1", got)
	}
}
