package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// TextLayerResult is the outcome of one text-layer pass over a PDF.
type TextLayerResult struct {
	// Pages holds the trimmed text of each considered page, 0-indexed.
	Pages pageTexts
	// NeedsOCR lists 0-based indices of pages whose text layer fell below
	// the character threshold.
	NeedsOCR []int
}

// Text joins all page texts into the tier's document-level result.
func (r TextLayerResult) Text() string {
	return r.Pages.join()
}

// TextLayerExtractor pulls embedded text-layer content out of a PDF page
// sequence and classifies each page as "has text" or "needs OCR".
type TextLayerExtractor struct {
	maxPages int
	minChars int
}

// NewTextLayerExtractor creates an extractor bounded to maxPages, marking
// pages with fewer than minChars characters as needing OCR.
func NewTextLayerExtractor(maxPages, minChars int) *TextLayerExtractor {
	return &TextLayerExtractor{maxPages: maxPages, minChars: minChars}
}

// Extract reads the text layer of every page up to the page cap. A page
// whose extraction fails is treated exactly like a page with empty text:
// classified as needing OCR without aborting the remaining pages.
func (e *TextLayerExtractor) Extract(data []byte) (TextLayerResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return TextLayerResult{}, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages > e.maxPages {
		log.Debug().
			Int("pages", numPages).
			Int("max_pages", e.maxPages).
			Msg("Page count over cap, overflow pages ignored")
		numPages = e.maxPages
	}
	if numPages <= 0 {
		return TextLayerResult{}, fmt.Errorf("PDF has no pages")
	}

	result := TextLayerResult{Pages: make(pageTexts, numPages)}
	for i := 0; i < numPages; i++ {
		text := e.pageText(reader, i+1)
		result.Pages[i] = text
		if len(text) < e.minChars {
			result.NeedsOCR = append(result.NeedsOCR, i)
		}
	}

	return result, nil
}

// pageText extracts one page's text layer, containing panics from malformed
// page objects. The underlying parser panics on corrupt structures rather
// than returning errors.
func (e *TextLayerExtractor) pageText(reader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Int("page", pageNum).
				Interface("panic", r).
				Msg("Text layer extraction panicked, page marked for OCR")
			text = ""
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		log.Debug().Err(err).Int("page", pageNum).Msg("Text layer extraction failed for page")
		return ""
	}

	return strings.TrimSpace(collapseSpaces(content))
}
