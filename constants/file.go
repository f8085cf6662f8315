package constants

// Upload handling limits.
const (
	// AllowedExtension is the only document format accepted for upload.
	AllowedExtension = ".pdf"

	// MaxFileSizeMB caps uploads; larger files are rejected before analysis.
	MaxFileSizeMB = 50
)
