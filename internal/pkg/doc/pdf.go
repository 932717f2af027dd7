// Package doc converts raw disclosure documents into text the bank
// extractors can pattern-match.
package doc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFPages returns one whitespace-joined string per page, with text
// fragments in extraction order. Extraction order does not necessarily match
// visual reading order (multi-column layouts and right-aligned numeric
// columns interleave), so downstream matching must tolerate values appearing
// before their labels.
func ExtractPDFPages(raw []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		content := page.Content()
		fragments := make([]string, 0, len(content.Text))
		for _, t := range content.Text {
			fragments = append(fragments, t.S)
		}
		pages = append(pages, strings.Join(fragments, " "))
	}

	return pages, nil
}
