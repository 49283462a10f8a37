// Package extract pulls plain text out of uploaded resumes.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupported is returned for file types that cannot be read.
var ErrUnsupported = errors.New("unsupported document type")

// Text returns the document's text. The format is chosen from the file
// extension, falling back to the PDF magic bytes.
func Text(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf" || isPDF(data):
		return PDFText(ctx, data)
	case ext == ".txt" || ext == ".md" || ext == ".text":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: text is not valid UTF-8", filename)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
