package ocr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of a PDF.
type TextLayer interface {
	Text(content []byte) (text string, pages int, err error)
}

// PDFTextLayer reads embedded text with github.com/ledongthuc/pdf.
type PDFTextLayer struct{}

// Text returns page texts joined by newlines. Pages that fail to decode are
// skipped. A panic inside the PDF reader is returned as an error.
func (PDFTextLayer) Text(content []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages = r.NumPage()
	parts := make([]string, 0, pages)
	var failed int
	// pages are 1-indexed
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, perr := p.GetPlainText(nil)
		if perr != nil {
			failed++
			continue
		}
		parts = append(parts, t)
	}
	if failed > 0 && len(parts) == 0 {
		return "", pages, fmt.Errorf("no readable pages (%d failed)", failed)
	}
	return strings.Join(parts, "\n"), pages, nil
}
