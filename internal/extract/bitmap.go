package extract

import "encoding/binary"

// BMP header sizes per the Windows bitmap format.
const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
)

// EncodeBitmap turns a raw RGBA pixel buffer into a 24-bit uncompressed BMP
// that any standard raster decoder can read. Alpha is dropped, channels are
// reordered RGBA -> BGR, and the header declares a negative height so rows
// are stored top-down with no separate flip step.
//
// Callers must guarantee width > 0, height > 0 and len(rgba) == width*height*4;
// the encoder does not validate.
func EncodeBitmap(rgba []byte, width, height int) []byte {
	// Rows are padded to a 4-byte boundary.
	rowSize := (3*width + 3) &^ 3
	pixelDataSize := rowSize * height
	fileSize := bmpFileHeaderSize + bmpInfoHeaderSize + pixelDataSize

	out := make([]byte, fileSize)

	// File header.
	out[0] = 'B'
	out[1] = 'M'
	binary.LittleEndian.PutUint32(out[2:6], uint32(fileSize))
	binary.LittleEndian.PutUint32(out[10:14], bmpFileHeaderSize+bmpInfoHeaderSize)

	// BITMAPINFOHEADER.
	info := out[bmpFileHeaderSize:]
	binary.LittleEndian.PutUint32(info[0:4], bmpInfoHeaderSize)
	binary.LittleEndian.PutUint32(info[4:8], uint32(width))
	binary.LittleEndian.PutUint32(info[8:12], uint32(int32(-height))) // top-down
	binary.LittleEndian.PutUint16(info[12:14], 1)                     // planes
	binary.LittleEndian.PutUint16(info[14:16], 24)                    // bits per pixel
	binary.LittleEndian.PutUint32(info[20:24], uint32(pixelDataSize))

	pixels := out[bmpFileHeaderSize+bmpInfoHeaderSize:]
	for y := 0; y < height; y++ {
		src := rgba[y*width*4:]
		dst := pixels[y*rowSize:]
		for x := 0; x < width; x++ {
			dst[x*3+0] = src[x*4+2] // B
			dst[x*3+1] = src[x*4+1] // G
			dst[x*3+2] = src[x*4+0] // R
		}
	}

	return out
}
