package extract

import (
	"bytes"
	"encoding/binary"
	"testing"

	"golang.org/x/image/bmp"
)

func testPattern(w, h int) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pix[i*4+0] = byte(i * 7)
		pix[i*4+1] = byte(i * 13)
		pix[i*4+2] = byte(i * 29)
		pix[i*4+3] = byte(255 - i)
	}
	return pix
}

func TestEncodeBitmapRoundTrip(t *testing.T) {
	// Odd and even widths exercise row padding independently of width parity.
	dims := []struct{ w, h int }{
		{1, 1},
		{2, 2},
		{3, 1},
		{5, 4},
		{8, 3},
		{17, 9},
	}

	for _, d := range dims {
		pix := testPattern(d.w, d.h)
		encoded := EncodeBitmap(pix, d.w, d.h)

		img, err := bmp.Decode(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("decode %dx%d: %v", d.w, d.h, err)
		}

		b := img.Bounds()
		if b.Dx() != d.w || b.Dy() != d.h {
			t.Fatalf("decoded size = %dx%d, want %dx%d", b.Dx(), b.Dy(), d.w, d.h)
		}

		// Every pixel's R, G, B must survive exactly; alpha is dropped.
		for y := 0; y < d.h; y++ {
			for x := 0; x < d.w; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				i := (y*d.w + x) * 4
				if byte(r>>8) != pix[i] || byte(g>>8) != pix[i+1] || byte(bl>>8) != pix[i+2] {
					t.Fatalf("%dx%d pixel (%d,%d) = (%d,%d,%d), want (%d,%d,%d)",
						d.w, d.h, x, y, byte(r>>8), byte(g>>8), byte(bl>>8), pix[i], pix[i+1], pix[i+2])
				}
			}
		}
	}
}

func TestEncodeBitmapRowStride(t *testing.T) {
	for w := 1; w <= 9; w++ {
		h := 2
		encoded := EncodeBitmap(testPattern(w, h), w, h)

		wantRow := (3*w + 3) / 4 * 4
		wantSize := bmpFileHeaderSize + bmpInfoHeaderSize + wantRow*h
		if len(encoded) != wantSize {
			t.Errorf("width %d: encoded size = %d, want %d (row %d)", w, len(encoded), wantSize, wantRow)
		}
	}
}

func TestEncodeBitmapHeader(t *testing.T) {
	encoded := EncodeBitmap(testPattern(4, 3), 4, 3)

	if encoded[0] != 'B' || encoded[1] != 'M' {
		t.Fatalf("magic = %q%q, want BM", encoded[0], encoded[1])
	}

	info := encoded[bmpFileHeaderSize:]
	if got := int32(binary.LittleEndian.Uint32(info[8:12])); got != -3 {
		t.Errorf("header height = %d, want -3 (top-down)", got)
	}
	if got := binary.LittleEndian.Uint16(info[14:16]); got != 24 {
		t.Errorf("bits per pixel = %d, want 24", got)
	}
}

func TestEncodeBitmapChannelOrder(t *testing.T) {
	// One red pixel: RGBA (255,0,0,255) must be stored as BGR (0,0,255).
	encoded := EncodeBitmap([]byte{255, 0, 0, 255}, 1, 1)
	px := encoded[bmpFileHeaderSize+bmpInfoHeaderSize:]
	if px[0] != 0 || px[1] != 0 || px[2] != 255 {
		t.Fatalf("stored pixel = (%d,%d,%d), want BGR (0,0,255)", px[0], px[1], px[2])
	}
}

func TestEncodeBitmapDeterministic(t *testing.T) {
	pix := testPattern(6, 5)
	a := EncodeBitmap(pix, 6, 5)
	b := EncodeBitmap(pix, 6, 5)
	if !bytes.Equal(a, b) {
		t.Fatal("encoder is not deterministic for identical input")
	}
}

// Guard against the encoder mutating its input.
func TestEncodeBitmapInputUntouched(t *testing.T) {
	pix := testPattern(3, 3)
	orig := append([]byte(nil), pix...)
	_ = EncodeBitmap(pix, 3, 3)
	if !bytes.Equal(pix, orig) {
		t.Fatal("encoder mutated the input buffer")
	}
}
