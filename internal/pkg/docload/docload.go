// Package docload turns stored files into page-addressed plain text.
package docload

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"ragchat/internal/pkg/pdfextract"
)

// ErrUnsupportedFileType is returned for extensions no loader handles.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Page is one page of extracted text. Plain-text formats produce a single
// page numbered 1.
type Page struct {
	Number int
	Text   string
}

// Load extracts text from data according to the file name's extension.
func Load(fileName string, data []byte) ([]Page, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch ext {
	case "pdf":
		raw, err := pdfextract.ExtractPages(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("extract pdf %s failed: %w", fileName, err)
		}
		pages := make([]Page, 0, len(raw))
		for i, text := range raw {
			if text == "" {
				continue
			}
			pages = append(pages, Page{Number: i + 1, Text: text})
		}
		return pages, nil
	case "txt", "md", "json":
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, nil
		}
		return []Page{{Number: 1, Text: text}}, nil
	default:
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFileType, ext)
	}
}
