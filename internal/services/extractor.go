package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
)

// TextExtractor derives plain text from uploaded CV documents.
type TextExtractor interface {
	ExtractText(filePath string) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

// ExtractText dispatches on file extension. PDF uses a native reader,
// office formats go through docconv, plain text is read as-is.
func (e *textExtractor) ExtractText(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	var text string
	var err error

	switch ext {
	case ".pdf":
		text, err = extractPDF(filePath)
	case ".docx", ".doc", ".rtf", ".odt":
		text, err = extractWithDocconv(filePath)
	case ".txt":
		text, err = extractPlainText(filePath)
	default:
		return "", errs.Newf(errs.KindUnsupportedType, "unsupported file type: %s", ext)
	}

	if err != nil {
		return "", err
	}

	text = CleanText(text)
	if text == "" {
		return "", errs.Newf(errs.KindExtraction, "no text content found in %s", filepath.Base(filePath))
	}

	return text, nil
}

func extractPDF(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", errs.Wrap(errs.KindExtraction, "failed to open PDF", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

func extractWithDocconv(filePath string) (string, error) {
	res, err := docconv.ConvertPath(filePath)
	if err != nil {
		return "", errs.Wrap(errs.KindExtraction, "failed to convert document", err)
	}
	return res.Body, nil
}

func extractPlainText(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", errs.Wrap(errs.KindExtraction, fmt.Sprintf("failed to read %s", filepath.Base(filePath)), err)
	}
	return string(content), nil
}

// CleanText trims and collapses blank lines.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
