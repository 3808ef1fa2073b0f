package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const documentPart = "word/document.xml"

// ErrNotDocx is returned when the archive has no main document part.
var ErrNotDocx = errors.New("not a Word document: missing " + documentPart)

// DocxFile reads the body paragraphs of a .docx file.
func DocxFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	return Docx(f, st.Size())
}

// Docx returns the text of the top-level body paragraphs joined by "\n".
// Paragraphs nested in tables are skipped.
func Docx(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}

	for _, file := range zr.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", documentPart, err)
		}
		defer rc.Close()

		paras, err := paragraphs(rc)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", documentPart, err)
		}
		return strings.Join(paras, "\n"), nil
	}
	return "", ErrNotDocx
}

// paragraphs collects the text of body-level paragraphs. Text inside tables, text boxes
// and mc:Choice branches is skipped.
func paragraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		out     []string
		current strings.Builder
		inText  bool
		skip    int
		depth   int
	)
	collecting := func() bool { return skip == 0 && depth > 0 }

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tbl", "txbxContent", "Choice":
				skip++
			case "p":
				if skip == 0 {
					depth++
					if depth == 1 {
						current.Reset()
					}
				}
			case "t":
				inText = collecting()
			case "tab":
				if collecting() {
					current.WriteByte('\t')
				}
			case "br":
				if collecting() && isLineBreak(el) {
					current.WriteByte('\n')
				}
			case "cr":
				if collecting() {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "tbl", "txbxContent", "Choice":
				skip--
			case "p":
				if skip == 0 && depth > 0 {
					depth--
					if depth == 0 {
						out = append(out, current.String())
					}
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}
}

// isLineBreak reports whether a w:br is a text-wrapping break. Page and column breaks add no text.
func isLineBreak(el xml.StartElement) bool {
	for _, attr := range el.Attr {
		if attr.Name.Local == "type" {
			return attr.Value == "" || attr.Value == "textWrapping"
		}
	}
	return true
}
