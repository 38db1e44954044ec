package batch

// Status tracks the lifecycle of a single batch run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// FileTask identifies one unit of work. The name is resolved against the
// manager's working directory; tasks are immutable once the batch starts.
type FileTask struct {
	Name string `json:"name"`
}

// Job describes one batch invocation. It is consumed by exactly one run and
// never reused. SegmentSize travels with the job so the translator needs no
// shared mutable configuration.
type Job struct {
	Files       []FileTask
	SourceLang  string
	TargetLang  string
	APIKey      string
	Provider    string
	Model       string
	CustomTerms string
	SegmentSize int
}

// StatusLabel values passed to the per-file status callback.
const (
	StatusLabelTranslated = "translated"
	StatusLabelError      = "error"
)

// StatusCallback is invoked synchronously alongside each file event.
type StatusCallback func(name, status string)
