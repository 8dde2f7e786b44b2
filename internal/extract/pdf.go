package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls the embedded text layer out of a PDF. A PDF with no text
// layer (a pure scan) is an extraction failure rather than an empty result.
func extractPDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf extraction: opening document: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf extraction: reading text layer: %w", err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("pdf extraction: reading text layer: %w", err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, fmt.Errorf("pdf extraction: document has no extractable text")
	}

	return &Result{
		ExtractedText:    text,
		FileFormat:       FormatPDF,
		WordCount:        wordCount(text),
		ExtractionMethod: MethodPDFParse,
		ConfidenceScore:  confPDF,
		RawMetadata:      map[string]any{"page_count": reader.NumPage()},
	}, nil
}
