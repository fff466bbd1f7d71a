//go:build cgo && ocr

package extract

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"
)

// TesseractEngine runs OCR in-process through the Tesseract C API.
type TesseractEngine struct{}

// NewTesseractEngine creates the Tesseract-backed local OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{}
}

func (e *TesseractEngine) Available() bool {
	return true
}

// Start creates one Tesseract client configured for the given languages.
func (e *TesseractEngine) Start(languages []string) (OCRWorker, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage(strings.Join(languages, "+")); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	log.Debug().Strs("languages", languages).Msg("Tesseract worker started")

	return &tesseractWorker{client: client}, nil
}

type tesseractWorker struct {
	client *gosseract.Client
}

// Recognize runs one bitmap through Tesseract.
func (w *tesseractWorker) Recognize(image []byte) (string, error) {
	if err := w.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := w.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

func (w *tesseractWorker) Terminate() error {
	return w.client.Close()
}
