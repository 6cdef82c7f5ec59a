package convert

import (
	"image"
	"image/png"
	"io"
)

// rotate90 rotates an image 90 degrees clockwise, used to normalize
// landscape PDF pages to portrait before OCR/redaction (§4.5).
func rotate90(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}

// EncodePNG is exposed so callers outside this package (the stream
// executor's OCR-assisted image paths) can re-encode a page or redacted
// image without duplicating the png.Encode call.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
