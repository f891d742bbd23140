// Package extract reads a free-text research interests statement from a document.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/catalogger/pkg/utils"
)

// MaxInterestsRunes caps the interests text sent to the embedder and the LLM prompt.
const MaxInterestsRunes = 4000

// ErrUnsupportedFormat is returned for file extensions with no extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// SupportedExtensions lists the file types Interests accepts.
var SupportedExtensions = []string{".docx", ".md", ".odt", ".pdf", ".rtf", ".txt", ".xlsx"}

// Interests reads the document at path and returns its text with whitespace collapsed,
// truncated to MaxInterestsRunes.
func Interests(path string) (string, error) {
	text, err := Text(path)
	if err != nil {
		return "", err
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", fmt.Errorf("%s: no text found", filepath.Base(path))
	}
	return utils.Truncate(text, MaxInterestsRunes), nil
}

// Text returns the raw text content of the document at path.
func Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".odt", ".rtf":
		return extractCat(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return FromBytes(content, ext)
}

// FromBytes extracts text from content based on ext, which includes the leading dot.
func FromBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt", ".md":
		return extractPlain(content)
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".odt", ".rtf":
		return extractCatBytes(content, ext)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
