package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// extractPDF reads the plain text of every page in the PDF at path.
func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
	}
	defer f.Close()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("copy pdf text %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
	}

	return buf.String(), nil
}
