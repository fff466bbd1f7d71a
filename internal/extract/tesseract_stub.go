//go:build !cgo || !ocr

package extract

import "fmt"

// TesseractEngine is a stub for builds without Tesseract/CGO support. The
// local OCR tier reports itself unavailable and the pipeline falls back to
// the best prior tier result.
type TesseractEngine struct{}

// NewTesseractEngine creates the stub engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{}
}

func (e *TesseractEngine) Available() bool {
	return false
}

func (e *TesseractEngine) Start(languages []string) (OCRWorker, error) {
	return nil, fmt.Errorf("OCR not available: built without Tesseract support")
}
