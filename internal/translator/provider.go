package translator

import "context"

// Provider translates chapter text between languages.
type Provider interface {
	Translate(ctx context.Context, req Request) (*Response, error)
	Name() string
	SupportedLanguages() []string
}

// Request describes one translation invocation. SegmentSize is carried per
// request so no provider state has to be mutated between batches.
type Request struct {
	Text        string
	SourceLang  string // ISO 639-1 (for example: "es", "en")
	TargetLang  string
	APIKey      string
	Model       string
	CustomTerms string
	SegmentSize int // characters per segment, 0 disables segmentation
}

// Response contains translated text and provider metadata.
type Response struct {
	Text         string
	SourceLang   string
	TargetLang   string
	ProviderName string
	ModelName    string
	LatencyMs    int64
}
