package extract

import (
	"fmt"
	"os"

	"github.com/lu4p/cat"
)

func extractCat(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return text, nil
}

// extractCatBytes stages content in a temp file because cat detects the format by name.
func extractCatBytes(content []byte, ext string) (string, error) {
	f, err := os.CreateTemp("", "interests-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return extractCat(f.Name())
}
