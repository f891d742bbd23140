package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	defaultDocxBody  = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// textRun captures the text of <w:t> elements whatever their attributes.
	textRun = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// paragraphEnd marks where paragraph breaks go.
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	// overrideTag finds Override elements in [Content_Types].xml.
	overrideTag = regexp.MustCompile(`<Override[^>]*>`)
	partName    = regexp.MustCompile(`PartName="([^"]+)"`)
)

// readZipPart returns the content of the named entry, or nil if absent.
func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}
	return nil, nil
}

// docxBodyPath finds the main document part named in [Content_Types].xml. Attributes may
// appear in any order.
func docxBodyPath(zr *zip.Reader) string {
	ct, err := readZipPart(zr, contentTypesPart)
	if err != nil || ct == nil {
		return defaultDocxBody
	}
	for _, tag := range overrideTag.FindAllString(string(ct), -1) {
		if !strings.Contains(tag, `ContentType="`+docxMainType+`"`) {
			continue
		}
		if m := partName.FindStringSubmatch(tag); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return defaultDocxBody
}

// extractDOCX reads the text runs of a .docx body, one paragraph per line.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	path := docxBodyPath(zr)
	body, err := readZipPart(zr, path)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if body == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", path)
	}

	var lines []string
	for _, para := range paragraphEnd.Split(string(body), -1) {
		var runs []string
		for _, m := range textRun.FindAllStringSubmatch(para, -1) {
			runs = append(runs, m[1])
		}
		if line := strings.TrimSpace(strings.Join(runs, "")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
