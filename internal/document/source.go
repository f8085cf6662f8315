package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// SidecarSource reads page records from the layout sidecar the analyzer
// toolchain writes next to each uploaded file (<name>.pdf.layout.json). The
// token-classification and table-detection models run out of process; this
// keeps their GPU runtime out of the service binary.
type SidecarSource struct{}

// SidecarSuffix is appended to the document path to locate its layout file.
const SidecarSuffix = ".layout.json"

func (SidecarSource) ExtractPages(ctx context.Context, path string) ([]Page, error) {
	b, err := os.ReadFile(path + SidecarSuffix)
	if err != nil {
		return nil, fmt.Errorf("read layout sidecar: %w", err)
	}
	var pages []Page
	if err := json.Unmarshal(b, &pages); err != nil {
		return nil, fmt.Errorf("decode layout sidecar: %w", err)
	}
	return pages, nil
}

// StaticSource serves a fixed page set regardless of path. Used by the batch
// CLI when pages were pre-extracted, and by tests.
type StaticSource struct {
	Pages []Page
	Err   error
}

func (s StaticSource) ExtractPages(ctx context.Context, path string) ([]Page, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Pages, nil
}
