package extract

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"rsc.io/pdf"
)

// PDFPages returns the text of every page, in page order. Pages without text yield "".
func PDFPages(data []byte) (pages []string, err error) {
	// rsc.io/pdf panics on some malformed files instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(page.Content().Text))
	}
	return pages, nil
}

// PDFText returns the text of all pages joined by newlines, and the page count.
func PDFText(data []byte) (string, int, error) {
	pages, err := PDFPages(data)
	if err != nil {
		return "", 0, err
	}
	return strings.Join(pages, "\n"), len(pages), nil
}

// pageText rebuilds lines from positioned glyph runs. Spaces are not emitted as runs by the
// reader, so they are inferred from horizontal gaps.
func pageText(runs []pdf.Text) string {
	var b strings.Builder
	for i, t := range runs {
		if i > 0 {
			prev := runs[i-1]
			tol := math.Max(prev.FontSize, t.FontSize) / 2
			if tol == 0 {
				tol = 1
			}
			switch {
			case math.Abs(t.Y-prev.Y) > tol:
				b.WriteByte('\n')
			case t.X-(prev.X+prev.W) > tol/2:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return b.String()
}
