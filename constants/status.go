package constants

// ProcessingState is the canonical lifecycle state for a tracked document.
type ProcessingState string

// Stable values (store these exact strings in the DB and status cache).
const (
	StateUploaded   ProcessingState = "uploaded"   // file accepted, not yet scheduled
	StateProcessing ProcessingState = "processing" // pipeline running
	StateCompleted  ProcessingState = "completed"  // terminal success
	StateFailed     ProcessingState = "failed"     // terminal failure
)

// Terminal reports whether s admits no further transitions.
func (s ProcessingState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ExtractionStatus is the outcome recorded on an ExtractionResult.
type ExtractionStatus string

const (
	ExtractionCompleted ExtractionStatus = "completed"
	ExtractionFailed    ExtractionStatus = "failed"
	// ExtractionPartial marks results where some sections were extracted and
	// others accumulated errors.
	ExtractionPartial ExtractionStatus = "partial"
)
