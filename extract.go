package pdfquiz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads every page of a PDF in document order and joins the page
// texts with a blank line. Any failure is reported as *ExtractionError.
func ExtractText(ctx context.Context, data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", &ExtractionError{Cause: errors.New("empty document")}
	}

	// the pdf package panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Cause: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Cause: err}
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return "", &ExtractionError{Cause: errors.New("document has no pages")}
	}
	VerboseLog("Extracting text from %d pages", numPages)

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", &ExtractionError{Cause: err}
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Cause: fmt.Errorf("page %d: %w", i, err)}
		}
		if pageText = strings.TrimSpace(pageText); pageText == "" {
			continue
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n\n"), nil
}
