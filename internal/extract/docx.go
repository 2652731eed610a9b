package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// docx is a zip archive; the document body lives in word/document.xml as
// paragraphs of runs of text elements.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// extractDOCX unzips the archive and joins paragraph text with newlines.
func extractDOCX(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml in %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml in %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
		}

		text, err := parseDocumentXML(content)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w: %w", filepath.Base(path), domain.ErrExtraction, err)
		}
		return text, nil
	}

	return "", fmt.Errorf("%s has no word/document.xml: %w", filepath.Base(path), domain.ErrExtraction)
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return b.String(), nil
}
