package extract

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
)

// Service is the inbound boundary of the extraction subsystem: one
// operation, ExtractText. PDFs go through the tier pipeline; DOCX, TXT and
// RTF take lightweight direct extraction.
type Service struct {
	pipeline         *Pipeline
	tooLongThreshold int
}

// NewService creates the extraction service.
func NewService(pipeline *Pipeline, tooLongThreshold int) *Service {
	return &Service{pipeline: pipeline, tooLongThreshold: tooLongThreshold}
}

// SupportedMediaTypes returns the media types the dispatcher accepts.
func (s *Service) SupportedMediaTypes() []string {
	return []string{MediaTypePDF, MediaTypeDOCX, MediaTypeTXT, MediaTypeRTF}
}

// ExtractText returns the best-effort plain text of one document. The only
// errors it returns are ErrUnsupportedFormat and ErrEmptyResult; everything
// else inside the pipeline degrades into a weaker result instead.
func (s *Service) ExtractText(ctx context.Context, doc Document) (ExtractionResult, error) {
	doc.MediaType = ResolveMediaType(doc.MediaType, doc.Filename)

	logger := log.With().
		Str("extraction_id", uuid.NewString()).
		Str("media_type", doc.MediaType).
		Str("filename", doc.Filename).
		Int("bytes", len(doc.Data)).
		Logger()

	var text string
	var err error

	switch doc.MediaType {
	case MediaTypePDF:
		text, err = s.pipeline.Extract(ctx, doc)
	case MediaTypeDOCX:
		text, err = extractFromDOCX(doc.Data)
	case MediaTypeTXT:
		text = string(doc.Data)
	case MediaTypeRTF:
		text = extractFromRTF(doc.Data)
	default:
		logger.Warn().Msg("Unsupported media type rejected")
		return ExtractionResult{}, ErrUnsupportedFormat
	}

	if err != nil && doc.MediaType != MediaTypePDF {
		// Direct extraction failures degrade the same way tier failures
		// do: the caller only ever sees an empty-result condition.
		logger.Warn().Err(err).Msg("Direct extraction failed")
		err = ErrEmptyResult
	}
	if err != nil {
		return ExtractionResult{}, err
	}

	text = strings.TrimSpace(SanitizeText(text))
	if text == "" {
		logger.Warn().Msg("Extraction produced no text")
		return ExtractionResult{}, ErrEmptyResult
	}

	result := ExtractionResult{
		Text:       text,
		TooLong:    len(text) > s.tooLongThreshold,
		Characters: len(text),
	}

	logger.Info().
		Int("characters", result.Characters).
		Bool("too_long", result.TooLong).
		Float64("quality", TextQualityScore(text)).
		Msg("Document text extracted")

	return result, nil
}

// extractFromDOCX extracts text from Word documents.
func extractFromDOCX(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	doc, err := docx.ReadDocxFromMemory(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = stripXMLTags(content)
	return strings.TrimSpace(content), nil
}

var (
	rtfDestRe    = regexp.MustCompile(`\{\\\*?\\?(?:fonttbl|colortbl|stylesheet|info|pict|generator|themedata)`)
	rtfBreakRe   = regexp.MustCompile(`\\(?:par|line|sect|page)\b ?`)
	rtfUnicodeRe = regexp.MustCompile(`\\u(-?\d+) ?(\\'[0-9a-fA-F]{2}|[^\\{}])?`)
	rtfHexRe     = regexp.MustCompile(`\\'([0-9a-fA-F]{2})`)
	rtfControlRe = regexp.MustCompile(`\\[a-z]+-?\d*\s?`)
	xmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	blankRunRe   = regexp.MustCompile(`[ \t]+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// extractFromRTF strips RTF markup, leaving the plain text. Destination
// groups (font tables, embedded images and the like) are dropped wholesale;
// formatting groups and control words are unwrapped. Good enough for
// résumé-style exports; not a full RTF parser.
func extractFromRTF(data []byte) string {
	content := string(data)

	for {
		loc := rtfDestRe.FindStringIndex(content)
		if loc == nil {
			break
		}
		content = content[:loc[0]] + content[skipRTFGroup(content, loc[0]):]
	}

	content = rtfBreakRe.ReplaceAllString(content, "\n")

	// \uN carries the real character; the byte after it is only the
	// fallback for readers without unicode support and is dropped.
	content = rtfUnicodeRe.ReplaceAllStringFunc(content, func(m string) string {
		sub := rtfUnicodeRe.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			return ""
		}
		if n < 0 {
			n += 0x10000
		}
		return string(rune(n))
	})

	// \'xx hex escapes are codepage bytes; Word exports use Windows-1252.
	content = rtfHexRe.ReplaceAllStringFunc(content, func(m string) string {
		b, err := strconv.ParseUint(m[2:], 16, 8)
		if err != nil {
			return ""
		}
		return string(charmap.Windows1252.DecodeByte(byte(b)))
	})

	content = rtfControlRe.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "\\{", "\x00ob")
	content = strings.ReplaceAll(content, "\\}", "\x00cb")
	content = strings.ReplaceAll(content, "\\\\", "\\")
	content = strings.ReplaceAll(content, "{", "")
	content = strings.ReplaceAll(content, "}", "")
	content = strings.ReplaceAll(content, "\x00ob", "{")
	content = strings.ReplaceAll(content, "\x00cb", "}")

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	content = blankRunRe.ReplaceAllString(content, " ")
	content = newlineRunRe.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

// skipRTFGroup returns the index just past the brace group opening at start.
func skipRTFGroup(content string, start int) int {
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '\\':
			i++ // escaped character, including \{ and \}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(content)
}

// stripXMLTags removes markup the DOCX library leaves in paragraph content,
// inserting newlines at paragraph boundaries.
func stripXMLTags(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagRe.ReplaceAllString(content, "")
	return content
}
