package document

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
)

// ValidateFile checks an uploaded document before it is admitted to the
// pipeline: the file must exist, stay under the size cap, carry the .pdf
// extension, parse as a well-formed PDF, and contain at least one page.
func ValidateFile(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return common.NewAppError("FILE_NOT_FOUND", "file not found", common.ErrInvalidInput)
	}

	sizeMB := float64(st.Size()) / (1024 * 1024)
	if sizeMB > constants.MaxFileSizeMB {
		return common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file too large: %.1fMB > %dMB", sizeMB, constants.MaxFileSizeMB),
			common.ErrInvalidInput)
	}

	if !strings.HasSuffix(strings.ToLower(path), constants.AllowedExtension) {
		return common.NewAppError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("only %s files are supported", constants.AllowedExtension),
			common.ErrInvalidInput)
	}

	if err := api.ValidateFile(path, nil); err != nil {
		return common.NewAppError("INVALID_PDF", "file is not a valid PDF", common.ErrInvalidInput)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return common.NewAppError("INVALID_PDF", "could not read page count", common.ErrInvalidInput)
	}
	if pages == 0 {
		return common.NewAppError("EMPTY_PDF", "PDF has no pages", common.ErrInvalidInput)
	}
	return nil
}
