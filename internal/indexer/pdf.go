package indexer

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const maxPDFText = 1 << 20

// extractPDF returns the plain text of every page as a single section.
func extractPDF(path string) (sections []section, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			sections, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extracting pdf text: %w", err)
	}
	raw, err := io.ReadAll(io.LimitReader(plain, maxPDFText))
	if err != nil {
		return nil, fmt.Errorf("reading pdf text: %w", err)
	}

	text := strings.Join(strings.Fields(string(raw)), " ")
	if text == "" {
		return nil, nil
	}
	return []section{{title: titleFromName(path), text: text}}, nil
}
