package extract

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	// Decoders for the image formats pdfcpu writes when extracting
	// embedded page images.
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/tiff"
)

// PageRasterizer renders one PDF page onto a drawing surface. The surface
// captures the pixel buffers placed on it; everything else a renderer does
// is a no-op there.
type PageRasterizer interface {
	RenderPage(ctx context.Context, data []byte, pageNum int, surface DrawingSurface) error
}

// PDFRasterizer obtains page rasters without a real graphics stack: the
// images embedded in the page (for scanned documents, the page scan itself)
// are extracted, decoded and placed onto the surface.
type PDFRasterizer struct {
	tempDir string
}

// NewPDFRasterizer creates a rasterizer working under the OS temp directory.
func NewPDFRasterizer() *PDFRasterizer {
	return &PDFRasterizer{tempDir: os.TempDir()}
}

// RenderPage extracts the embedded images of one 1-based page and replays
// them onto the surface as image-placement calls.
func (r *PDFRasterizer) RenderPage(ctx context.Context, data []byte, pageNum int, surface DrawingSurface) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	workDir, err := os.MkdirTemp(r.tempDir, "resumetruth-render-")
	if err != nil {
		return fmt.Errorf("failed to create render dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	pdfPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write PDF temp file: %w", err)
	}

	outDir := filepath.Join(workDir, "images")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return fmt.Errorf("failed to create image dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages := []string{strconv.Itoa(pageNum)}
	if err := api.ExtractImagesFile(pdfPath, outDir, pages, conf); err != nil {
		return fmt.Errorf("failed to extract page images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("failed to read image dir: %w", err)
	}

	placed := 0
	surface.Save()
	surface.SetTransform(1, 0, 0, 1, 0, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		img, err := decodeImageFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			log.Debug().Err(err).Str("file", entry.Name()).Int("page", pageNum).
				Msg("Skipping undecodable page image")
			continue
		}
		b := img.Bounds()
		surface.Rect(0, 0, float64(b.Dx()), float64(b.Dy()))
		surface.DrawImage(img, 0, 0, float64(b.Dx()), float64(b.Dy()))
		placed++
	}
	surface.Restore()

	if placed == 0 {
		return fmt.Errorf("page %d has no decodable raster content", pageNum)
	}

	log.Debug().Int("page", pageNum).Int("images", placed).Msg("Page rasterized")
	return nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.TrimPrefix(filepath.Ext(path), "."), err)
	}
	return img, nil
}
