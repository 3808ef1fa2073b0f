package extract

import (
	"testing"

	"docscan/extract/pdftest"
)

func TestPDFPages_SinglePage(t *testing.T) {
	data := pdftest.Build(pdftest.TextPage("Hello World", "Second line"))

	pages, err := PDFPages(data)
	if err != nil {
		t.Fatalf("PDFPages failed: %v", err)
	}

	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0] != "Hello World\nSecond line" {
		t.Errorf("unexpected page text %q", pages[0])
	}
}

func TestPDFText_MultiplePages(t *testing.T) {
	data := pdftest.Build(
		pdftest.TextPage("First page"),
		pdftest.TextPage("Second page"),
	)

	text, count, err := PDFText(data)
	if err != nil {
		t.Fatalf("PDFText failed: %v", err)
	}

	if count != 2 {
		t.Errorf("expected 2 pages, got %d", count)
	}
	if text != "First page\nSecond page" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestPDFPages_NotAPDF(t *testing.T) {
	_, err := PDFPages([]byte("this is plainly not a pdf document, just some text padding it past a hundred bytes......"))
	if err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestPDFPages_Truncated(t *testing.T) {
	data := pdftest.Build(pdftest.TextPage("Hello"))

	if _, err := PDFPages(data[:len(data)/2]); err == nil {
		t.Fatal("expected error for truncated PDF")
	}
}
