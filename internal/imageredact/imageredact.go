// Package imageredact implements the simple image-coord redactor (§4.2):
// black-box rectangles painted at given coordinates with a safety
// approximation margin, decoded/re-encoded in the image's declared MIME.
//
// The pixel loop is grounded directly on the Rust original's
// simple_image_redacter.rs (expand-by-factor, clamp, paint-black, same
// format out); the Go rendition swaps image::DynamicImage for the
// standard image package plus golang.org/x/image's extra format
// registrations (bmp/tiff), the way arx-os/arxos and helixml/helix pull
// in golang.org/x/image alongside image/{png,jpeg}.
package imageredact

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// Coords is an alias kept local to the package boundary so callers don't
// need to reach into internal/model just to build one.
type Coords = model.TextImageCoords

// Redact decodes mimeType/data, paints a black rectangle for every coord
// (expanded by approximation, clamped to image bounds), and re-encodes in
// the same format. Fails with rerrors.KindUnsupportedImageFormat if
// mimeType cannot be mapped to a known raster format.
//
// Determinism: pixel writes are pure set-to-black, no dithering, so the
// output is byte-reproducible under the same encoder settings (§4.2).
func Redact(mimeType string, data []byte, coords []Coords, approximation float64) ([]byte, error) {
	img, format, err := decode(mimeType, data)
	if err != nil {
		return nil, err
	}

	rgba := PaintOnImage(img, coords, approximation)

	var out bytes.Buffer
	if err := encode(&out, rgba, format); err != nil {
		return nil, rerrors.Wrap(rerrors.KindUnsupportedImageFormat, err, "re-encoding redacted image as %s", format)
	}
	return out.Bytes(), nil
}

// PaintOnImage paints black rectangles for every coord (expanded by
// approximation, clamped to bounds) directly onto a decoded image,
// returning a fresh RGBA copy. Exported for callers (OCR-assisted PDF
// and image redaction in the stream pipeline) that already hold a
// decoded image.Image and don't need the encode/decode round-trip
// Redact performs.
func PaintOnImage(img image.Image, coords []Coords, approximation float64) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	black := color.RGBA{R: 0, G: 0, B: 0, A: 255}
	for _, c := range coords {
		paintRect(rgba, c, approximation, black)
	}
	return rgba
}

// paintRect expands c by approximation (a fractional factor applied to
// each coordinate, matching the original's `x - x*factor .. x + x*factor`
// shape), clamps to the image bounds, and paints every pixel in the
// resulting rectangle. Painted pixels are always a subset of
// [0,w) x [0,h) — the clamp is unconditional.
func paintRect(img *image.RGBA, c Coords, approximation float64, fill color.RGBA) {
	bounds := img.Bounds()
	maxX := bounds.Dx() - 1
	maxY := bounds.Dy() - 1

	x1 := int(c.X1 - c.X1*approximation)
	y1 := int(c.Y1 - c.Y1*approximation)
	x2 := int(c.X2 + c.X2*approximation)
	y2 := int(c.Y2 + c.Y2*approximation)

	for x := x1; x < x2; x++ {
		safeX := clamp(x, 0, maxX)
		for y := y1; y < y2; y++ {
			safeY := clamp(y, 0, maxY)
			img.SetRGBA(bounds.Min.X+safeX, bounds.Min.Y+safeY, fill)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func decode(mimeType string, data []byte) (image.Image, string, error) {
	format := formatFromMime(mimeType)
	if format == "" {
		return nil, "", rerrors.New(rerrors.KindUnsupportedImageFormat, "unsupported image mime type: %s", mimeType)
	}
	r := bytes.NewReader(data)
	var (
		img image.Image
		err error
	)
	switch format {
	case "png":
		img, err = png.Decode(r)
	case "jpeg":
		img, err = jpeg.Decode(r)
	case "gif":
		img, err = gif.Decode(r)
	case "bmp":
		img, err = bmp.Decode(r)
	case "tiff":
		img, err = tiff.Decode(r)
	}
	if err != nil {
		return nil, "", rerrors.Wrap(rerrors.KindUnsupportedImageFormat, err, "decoding image as %s", format)
	}
	return img, format, nil
}

func encode(w *bytes.Buffer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, nil)
	default:
		return rerrors.New(rerrors.KindUnsupportedImageFormat, "no encoder for format %s", format)
	}
}

// ResizeToFit scales the image down (preserving aspect ratio) so it
// fits within maxWidth x maxHeight, re-encoding in its original format.
// Images already within bounds are returned unchanged. Used by the
// native and coord-mode generative-image redactor paths, both of which
// resize to fit within 1024x1024 before sending to the model (§4.6).
func ResizeToFit(mimeType string, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, format, err := decode(mimeType, data)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth && h <= maxHeight {
		return data, nil
	}

	scale := float64(maxWidth) / float64(w)
	if alt := float64(maxHeight) / float64(h); alt < scale {
		scale = alt
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	var out bytes.Buffer
	if err := encode(&out, dst, format); err != nil {
		return nil, rerrors.Wrap(rerrors.KindUnsupportedImageFormat, err, "re-encoding resized image as %s", format)
	}
	return out.Bytes(), nil
}

func formatFromMime(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/gif":
		return "gif"
	case "image/bmp", "image/x-bmp", "image/x-ms-bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	default:
		return ""
	}
}
