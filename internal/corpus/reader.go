package corpus

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/catalogger/internal/models"
)

// Column names recognized in CSV and XLSX headers. author_emails carries OpenReview author
// ids or emails.
const (
	ColID           = "id"
	ColTitle        = "title"
	ColAbstract     = "abstract"
	ColAuthors      = "authors"
	ColAuthorEmails = "author_emails"
	ColKeywords     = "keywords"
	ColPDFURL       = "pdf_url"
)

// Header is the column order written by exports.
var Header = []string{ColID, ColTitle, ColAbstract, ColAuthors, ColAuthorEmails, ColKeywords, ColPDFURL}

// SupportedExtensions lists the file types ReadFile understands.
var SupportedExtensions = []string{".csv", ".xlsx", ".jsonl"}

// ReadFile reads a corpus file, picking the format from its extension. The corpus is named
// after the file stem.
func ReadFile(path string) (*models.Corpus, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var papers []models.Paper
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		papers, err = ReadCSV(bytes.NewReader(content))
	case ".xlsx":
		papers, err = ReadXLSX(bytes.NewReader(content))
	case ".jsonl":
		papers, err = ReadJSONL(bytes.NewReader(content))
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &models.Corpus{Name: name, Papers: papers}, nil
}

// ReadCSV parses a CSV corpus with a header row. Columns may appear in any order, unknown
// columns are ignored, and missing text columns read as empty.
func ReadCSV(r io.Reader) ([]models.Paper, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return fromRecords(records)
}

// ReadXLSX parses the first sheet of a workbook the same way as ReadCSV.
func ReadXLSX(r io.Reader) ([]models.Paper, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return fromRecords(rows)
}

func fromRecords(records [][]string) ([]models.Paper, error) {
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}
	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	if _, ok := cols[ColID]; !ok {
		return nil, fmt.Errorf("missing %q column", ColID)
	}
	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	papers := make([]models.Paper, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		papers = append(papers, models.Paper{
			ID:        cell(rec, ColID),
			Title:     cell(rec, ColTitle),
			Abstract:  cell(rec, ColAbstract),
			Authors:   cell(rec, ColAuthors),
			AuthorIDs: cell(rec, ColAuthorEmails),
			Keywords:  cell(rec, ColKeywords),
			PDFURL:    cell(rec, ColPDFURL),
		})
	}
	return papers, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// jsonlRecord accepts list or string forms for the list-valued fields.
type jsonlRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Abstract     string   `json:"abstract"`
	Authors      listText `json:"authors"`
	AuthorEmails listText `json:"author_emails"`
	AuthorIDs    listText `json:"author_ids"`
	Keywords     listText `json:"keywords"`
	PDFURL       string   `json:"pdf_url"`
}

// listText decodes either a JSON string or an array of strings into comma-separated text.
type listText string

func (l *listText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = listText(strings.TrimSpace(s))
		return nil
	}
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = listText(models.JoinList(items))
	return nil
}

// ReadJSONL parses one JSON object per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]models.Paper, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var papers []models.Paper
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ids := rec.AuthorEmails
		if ids == "" {
			ids = rec.AuthorIDs
		}
		papers = append(papers, models.Paper{
			ID:        strings.TrimSpace(rec.ID),
			Title:     strings.TrimSpace(rec.Title),
			Abstract:  strings.TrimSpace(rec.Abstract),
			Authors:   string(rec.Authors),
			AuthorIDs: string(ids),
			Keywords:  string(rec.Keywords),
			PDFURL:    strings.TrimSpace(rec.PDFURL),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	return papers, nil
}

// WriteCSV writes papers with the standard Header.
func WriteCSV(w io.Writer, papers []models.Paper) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range papers {
		if err := cw.Write([]string{p.ID, p.Title, p.Abstract, p.Authors, p.AuthorIDs, p.Keywords, p.PDFURL}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
