package formfill

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FileValidator checks that an input document is a PDF the pipeline can
// process before any operation touches it.
type FileValidator struct {
	maxFileSize int64
}

// NewFileValidator creates a validator with the given size limit.
func NewFileValidator(maxFileSize int64) *FileValidator {
	return &FileValidator{maxFileSize: maxFileSize}
}

// ValidateFile checks existence, extension, size, and that the file opens as
// a PDF. Any failure makes the whole operation fatal; nothing is written.
func (v *FileValidator) ValidateFile(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), v.maxFileSize)
	}

	f, _, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()

	return nil
}

// IsValidPDF performs a quick check without reporting the reason.
func (v *FileValidator) IsValidPDF(path string) bool {
	return v.ValidateFile(path) == nil
}
