// Package extract turns uploaded files into raw text for the ingestion pipeline.
// Format-specific parsing lives here; the pipeline only ever sees plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// SupportedExtensions lists the upload allow-list, lowercase with leading dot.
var SupportedExtensions = []string{".pdf", ".txt", ".docx", ".md"}

// Extractor dispatches on file extension to a format-specific text reader.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Supported reports whether the filename's extension is in the allow-list.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract returns the raw text content of the file at path.
// Corrupt or unreadable input yields an error wrapping domain.ErrExtraction;
// unknown extensions yield domain.ErrUnsupportedFileType.
func (e *Extractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	case ".txt", ".md":
		return extractPlain(path)
	default:
		return "", fmt.Errorf("%s: %w", filepath.Ext(path), domain.ErrUnsupportedFileType)
	}
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
	}
	return string(data), nil
}
