package extract

import (
	"path/filepath"
	"strings"
)

// Media types accepted by the dispatcher.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeTXT  = "text/plain"
	MediaTypeRTF  = "application/rtf"
)

// Document is an uploaded file held for the duration of one extraction
// request. It is never persisted.
type Document struct {
	Data      []byte
	MediaType string
	Filename  string
}

// ExtractionResult is the only artifact returned to the caller. All
// intermediate per-tier and per-page state is discarded.
type ExtractionResult struct {
	Text       string `json:"text"`
	TooLong    bool   `json:"too_long"`
	Characters int    `json:"characters"`
}

// pageTexts holds per-page candidates while the pipeline runs. Index is
// 0-based; page numbers reported to logs are 1-based.
type pageTexts []string

// merge keeps the longest non-empty candidate for a page. An empty candidate
// never overwrites a non-empty one.
func (p pageTexts) merge(index int, candidate string) {
	if index < 0 || index >= len(p) {
		return
	}
	candidate = strings.TrimSpace(candidate)
	if len(candidate) > len(p[index]) {
		p[index] = candidate
	}
}

// join concatenates all non-empty pages in order with newline separators.
func (p pageTexts) join() string {
	var b strings.Builder
	for _, t := range p {
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t)
	}
	return b.String()
}

var mediaTypeByExtension = map[string]string{
	".pdf":  MediaTypePDF,
	".docx": MediaTypeDOCX,
	".txt":  MediaTypeTXT,
	".rtf":  MediaTypeRTF,
}

// ResolveMediaType normalizes the declared media type, falling back to the
// filename extension when the declaration is missing or generic.
func ResolveMediaType(declared, filename string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}

	switch declared {
	case MediaTypePDF, MediaTypeDOCX, MediaTypeTXT, MediaTypeRTF:
		return declared
	case "text/rtf":
		return MediaTypeRTF
	case "", "application/octet-stream":
		if mt, ok := mediaTypeByExtension[strings.ToLower(filepath.Ext(filename))]; ok {
			return mt
		}
	}
	return declared
}
