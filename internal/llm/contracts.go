package llm

import "context"

// Request is one text-completion call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
	Stop        []string
}

// Completer is the text-completion collaborator the extraction tiers depend
// on. Implementations must tolerate concurrent callers; the shared inference
// resource supports a single in-flight request, so implementations serialize
// internally.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
