package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/catalogger/internal/models"
)

func TestReadCSV(t *testing.T) {
	in := "\ufefftitle,ID,abstract,extra\n" +
		"Graph nets,p1,\"Message passing, on graphs\",x\n" +
		",,,\n" +
		"Short row,p2\n"
	papers, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers", len(papers))
	}
	if papers[0].ID != "p1" || papers[0].Abstract != "Message passing, on graphs" {
		t.Errorf("row 0 = %+v", papers[0])
	}
	if papers[1].Abstract != "" || papers[1].Authors != "" {
		t.Errorf("missing columns should read empty, got %+v", papers[1])
	}
}

func TestReadCSV_MissingID(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("title,abstract\nA,B\n")); err == nil {
		t.Error("expected error for missing id column")
	}
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestWriteCSV_ReadBack(t *testing.T) {
	papers := []models.Paper{
		{ID: "1", Title: "T", Abstract: "A \"quoted\"", Authors: "X, Y", AuthorIDs: "~X1, y@z.org", Keywords: "k", PDFURL: "u"},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, papers); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != papers[0] {
		t.Errorf("got %+v", got)
	}
}

func TestReadJSONL(t *testing.T) {
	in := `{"id":"a","title":"One","authors":["Ann Lee","Bo Chen"],"keywords":"rl, bandits"}

{"id":"b","title":"Two","author_ids":["~Bo1"],"pdf_url":"https://x/b.pdf"}
`
	papers, err := ReadJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers", len(papers))
	}
	if papers[0].Authors != "Ann Lee, Bo Chen" || papers[0].Keywords != "rl, bandits" {
		t.Errorf("row 0 = %+v", papers[0])
	}
	if papers[1].AuthorIDs != "~Bo1" || papers[1].PDFURL != "https://x/b.pdf" {
		t.Errorf("row 1 = %+v", papers[1])
	}

	if _, err := ReadJSONL(strings.NewReader("{\"id\":\"a\"}\nnot json\n")); err == nil ||
		!strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}

func TestReadFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"id", "title", "abstract", "keywords"},
		{"x1", "Spreadsheet paper", "Rows and cells", "tables"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "ICLR 2024.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	c, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "ICLR 2024" || c.Len() != 1 {
		t.Fatalf("got %+v", c)
	}
	if p := c.Papers[0]; p.ID != "x1" || p.Keywords != "tables" {
		t.Errorf("got %+v", p)
	}
}

func TestReadFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	_ = os.WriteFile(path, []byte("id\n1\n"), 0644)
	if _, err := ReadFile(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
