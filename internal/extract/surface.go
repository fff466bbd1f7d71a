package extract

import (
	"image"
)

// TextMetrics is the shape returned by text-measurement calls. Renderers
// branch on the returned struct, so the emulator hands back zeroed metrics
// rather than nothing.
type TextMetrics struct {
	Width                    float64
	ActualBoundingBoxLeft    float64
	ActualBoundingBoxRight   float64
	ActualBoundingBoxAscent  float64
	ActualBoundingBoxDescent float64
}

// Gradient is the shape returned by gradient constructors.
type Gradient struct{}

// AddColorStop is a no-op; renderers configure gradients they never see used.
func (g *Gradient) AddColorStop(offset float64, color string) {}

// Pattern is the shape returned by pattern constructors.
type Pattern struct{}

// Raster is a raw pixel object: an RGBA buffer with explicit dimensions.
// It exists only between rendering and encoding.
type Raster struct {
	Width  int
	Height int
	Pix    []byte
}

// DrawingSurface is the full drawing contract a page renderer expects.
// Renderers call these methods unconditionally, so every one of them must
// exist even though only image placement does real work.
type DrawingSurface interface {
	// Transform stack.
	Save()
	Restore()
	Scale(x, y float64)
	Rotate(angle float64)
	Translate(x, y float64)
	Transform(a, b, c, d, e, f float64)
	SetTransform(a, b, c, d, e, f float64)
	ResetTransform()

	// Path construction.
	BeginPath()
	ClosePath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	BezierCurveTo(cp1x, cp1y, cp2x, cp2y, x, y float64)
	QuadraticCurveTo(cpx, cpy, x, y float64)
	Arc(x, y, radius, startAngle, endAngle float64, counterclockwise bool)
	Rect(x, y, w, h float64)

	// Painting.
	Fill()
	Stroke()
	Clip()
	ClearRect(x, y, w, h float64)
	FillRect(x, y, w, h float64)
	StrokeRect(x, y, w, h float64)

	// Text.
	FillText(text string, x, y float64)
	StrokeText(text string, x, y float64)
	MeasureText(text string) TextMetrics
	SetFont(font string)

	// Style state.
	SetFillStyle(style string)
	SetStrokeStyle(style string)
	SetLineWidth(width float64)
	SetLineCap(lineCap string)
	SetLineJoin(join string)
	SetMiterLimit(limit float64)
	SetGlobalAlpha(alpha float64)
	SetGlobalCompositeOperation(op string)
	CreateLinearGradient(x0, y0, x1, y1 float64) *Gradient
	CreateRadialGradient(x0, y0, r0, x1, y1, r1 float64) *Gradient
	CreatePattern(src any, repetition string) *Pattern

	// Image placement: the only calls that do real work.
	DrawImage(src any, dx, dy, dw, dh float64)
	PutImageData(raster *Raster, dx, dy float64)
}

// PageSurface satisfies DrawingSurface while doing real work only for image
// placement: pixel buffers handed to DrawImage/PutImageData are captured for
// OCR, everything else is a no-op that returns a value of the right shape.
type PageSurface struct {
	width    int
	height   int
	captures []Raster
}

var _ DrawingSurface = (*PageSurface)(nil)

// NewPageSurface creates a surface for one page render.
func NewPageSurface(width, height int) *PageSurface {
	return &PageSurface{width: width, height: height}
}

func (s *PageSurface) Save()                                                 {}
func (s *PageSurface) Restore()                                              {}
func (s *PageSurface) Scale(x, y float64)                                    {}
func (s *PageSurface) Rotate(angle float64)                                  {}
func (s *PageSurface) Translate(x, y float64)                                {}
func (s *PageSurface) Transform(a, b, c, d, e, f float64)                    {}
func (s *PageSurface) SetTransform(a, b, c, d, e, f float64)                 {}
func (s *PageSurface) ResetTransform()                                       {}
func (s *PageSurface) BeginPath()                                            {}
func (s *PageSurface) ClosePath()                                            {}
func (s *PageSurface) MoveTo(x, y float64)                                   {}
func (s *PageSurface) LineTo(x, y float64)                                   {}
func (s *PageSurface) BezierCurveTo(cp1x, cp1y, cp2x, cp2y, x, y float64)    {}
func (s *PageSurface) QuadraticCurveTo(cpx, cpy, x, y float64)               {}
func (s *PageSurface) Arc(x, y, r, start, end float64, ccw bool)             {}
func (s *PageSurface) Rect(x, y, w, h float64)                               {}
func (s *PageSurface) Fill()                                                 {}
func (s *PageSurface) Stroke()                                               {}
func (s *PageSurface) Clip()                                                 {}
func (s *PageSurface) ClearRect(x, y, w, h float64)                          {}
func (s *PageSurface) FillRect(x, y, w, h float64)                           {}
func (s *PageSurface) StrokeRect(x, y, w, h float64)                         {}
func (s *PageSurface) FillText(text string, x, y float64)                    {}
func (s *PageSurface) StrokeText(text string, x, y float64)                  {}
func (s *PageSurface) MeasureText(text string) TextMetrics                   { return TextMetrics{} }
func (s *PageSurface) SetFont(font string)                                   {}
func (s *PageSurface) SetFillStyle(style string)                             {}
func (s *PageSurface) SetStrokeStyle(style string)                           {}
func (s *PageSurface) SetLineWidth(width float64)                            {}
func (s *PageSurface) SetLineCap(lineCap string)                             {}
func (s *PageSurface) SetLineJoin(join string)                               {}
func (s *PageSurface) SetMiterLimit(limit float64)                           {}
func (s *PageSurface) SetGlobalAlpha(alpha float64)                          {}
func (s *PageSurface) SetGlobalCompositeOperation(op string)                 {}
func (s *PageSurface) CreateLinearGradient(x0, y0, x1, y1 float64) *Gradient { return &Gradient{} }
func (s *PageSurface) CreateRadialGradient(x0, y0, r0, x1, y1, r1 float64) *Gradient {
	return &Gradient{}
}
func (s *PageSurface) CreatePattern(src any, repetition string) *Pattern { return &Pattern{} }

// DrawImage accepts three source shapes: another *PageSurface (renderers use
// internal temporary surfaces, whose captures are appended to this one), a
// *Raster, or an image.Image which is coerced into canonical RGBA bytes
// before storage. Anything else is ignored.
func (s *PageSurface) DrawImage(src any, dx, dy, dw, dh float64) {
	switch v := src.(type) {
	case *PageSurface:
		if v == nil || v == s {
			return
		}
		for i := range v.captures {
			s.capture(v.captures[i])
		}
	case *Raster:
		if v != nil {
			s.capture(*v)
		}
	case image.Image:
		s.capture(coerceToRaster(v))
	}
}

// PutImageData captures a raw pixel object directly.
func (s *PageSurface) PutImageData(raster *Raster, dx, dy float64) {
	if raster != nil {
		s.capture(*raster)
	}
}

// capture validates and stores one raster. A buffer whose length does not
// equal width*height*4 is corrupt and silently dropped; it must not abort
// the page render.
func (s *PageSurface) capture(r Raster) {
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	if len(r.Pix) != r.Width*r.Height*4 {
		return
	}
	s.captures = append(s.captures, r)
}

// Captures returns all rasters accepted so far, in placement order.
func (s *PageSurface) Captures() []Raster {
	return s.captures
}

// LargestCapture returns the capture with the greatest pixel area. When a
// page yields several images (background plus logos), the largest one is the
// scanned page content and the rest are noise.
func (s *PageSurface) LargestCapture() (Raster, bool) {
	if len(s.captures) == 0 {
		return Raster{}, false
	}
	best := 0
	for i := 1; i < len(s.captures); i++ {
		if s.captures[i].Width*s.captures[i].Height > s.captures[best].Width*s.captures[best].Height {
			best = i
		}
	}
	return s.captures[best], true
}

// Reset clears dimensions and accumulated captures so the surface can be
// reused for the next page. Captures must never leak across pages.
func (s *PageSurface) Reset(width, height int) {
	s.width = width
	s.height = height
	s.captures = nil
}

// Destroy drops all captured pixel data.
func (s *PageSurface) Destroy() {
	s.captures = nil
	s.width = 0
	s.height = 0
}

// coerceToRaster converts any image.Image into the canonical RGBA byte form.
func coerceToRaster(img image.Image) Raster {
	if img == nil {
		return Raster{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Raster{}
	}

	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 {
		return Raster{Width: w, Height: h, Pix: rgba.Pix[:w*h*4]}
	}

	pix := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			pix[i+0] = byte(r >> 8)
			pix[i+1] = byte(g >> 8)
			pix[i+2] = byte(bl >> 8)
			pix[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return Raster{Width: w, Height: h, Pix: pix}
}
