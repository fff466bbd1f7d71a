package extract

import (
	"strings"
	"unicode"
)

// SanitizeText removes null bytes and control characters (except newline,
// tab and carriage return) that tend to leak out of broken PDF text layers.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")

	var builder strings.Builder
	builder.Grow(len(text))

	for _, r := range text {
		if r == '\t' || r == '\n' || r == '\r' || (r >= 0x20 && r != 0x7F) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// TextQualityScore returns a score from 0-1 indicating how much of the text
// looks like readable content. Used only for log events, never for tier
// decisions (those go by character count).
func TextQualityScore(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}

	totalRunes := 0
	printableCount := 0
	letterCount := 0

	for _, r := range text {
		totalRunes++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printableCount++
		}
		if unicode.IsLetter(r) {
			letterCount++
		}
	}

	if totalRunes == 0 {
		return 0
	}

	printableRatio := float64(printableCount) / float64(totalRunes)
	letterRatio := float64(letterCount) / float64(totalRunes)

	return printableRatio*0.6 + letterRatio*0.4
}

// collapseSpaces joins text fragments with single spaces: runs of blanks
// become one space while newlines are preserved.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastBlank := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			lastBlank = true
			continue
		}
		if lastBlank && b.Len() > 0 && r != '\n' {
			b.WriteByte(' ')
		}
		lastBlank = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
