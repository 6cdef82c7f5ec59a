// Package convert implements the format converters from §4.5: PDF to
// per-page images and back, and OCR word-box extraction from an image.
//
// PDF<->image conversion is grounded on github.com/pdfcpu/pdfcpu (pulled
// in the same way arx-os/arxos uses it for PDF page/image manipulation):
// pdfcpu has no page-rasterization engine, so pages are treated as one
// embedded raster image each — the common shape for scanned documents,
// which is exactly the DLP "redact a scanned PDF" case this pipeline
// targets. A page with no embedded image, or more than one, is reported
// with PdfConversionError rather than silently guessed at.
package convert

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/redacter/dlpcopy/internal/rerrors"
)

// TargetRenderWidth is the width and height, in points, that
// ConvertToImages records for a page whose dimensions pdfcpu does not
// report. Extracted page images are never resampled; they keep the pixel
// size they were embedded with.
const TargetRenderWidth = 2000

// PdfPageInfo carries one page's source-unit dimensions alongside its
// decoded raster image. ImagesToPdf does not read the dimensions.
type PdfPageInfo struct {
	WidthPoints  float64
	HeightPoints float64
	Image        image.Image
}

// PdfInfo is the full per-page breakdown of a PDF document.
type PdfInfo struct {
	Pages []PdfPageInfo
}

// PdfToImage is the conversion contract the stream redacter depends on;
// satisfied by PdfImageConverter, and left as an interface so a build
// without a working pdfcpu install can still compile against a nil
// converter (mirrors FileConverters.pdf_image_converter being an Option
// in the original).
type PdfToImage interface {
	ConvertToImages(pdfBytes []byte) (PdfInfo, error)
	ImagesToPdf(info PdfInfo) ([]byte, error)
}

// PdfImageConverter is the pdfcpu-backed PdfToImage implementation.
type PdfImageConverter struct {
	conf *model.Configuration
}

// NewPdfImageConverter builds a converter with pdfcpu's default
// configuration (no external binary or license required).
func NewPdfImageConverter() *PdfImageConverter {
	return &PdfImageConverter{conf: model.NewDefaultConfiguration()}
}

// ConvertToImages extracts each page's embedded raster image to a scratch
// directory via pdfcpu, then decodes them back in page order. Landscape
// pages (width > height) are rotated to portrait, matching §4.5.
func (c *PdfImageConverter) ConvertToImages(pdfBytes []byte) (PdfInfo, error) {
	tmpDir, err := os.MkdirTemp("", "dlpcopy-pdf-*")
	if err != nil {
		return PdfInfo{}, rerrors.Wrap(rerrors.KindPdfConversion, err, "creating scratch dir for pdf extraction")
	}
	defer os.RemoveAll(tmpDir)

	srcPath := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(srcPath, pdfBytes, 0o600); err != nil {
		return PdfInfo{}, rerrors.Wrap(rerrors.KindPdfConversion, err, "writing scratch pdf")
	}

	pageCount, err := api.PageCountFile(srcPath)
	if err != nil {
		return PdfInfo{}, rerrors.Wrap(rerrors.KindPdfConversion, err, "reading pdf page count")
	}

	dims, err := api.PageDimsFile(srcPath)
	if err != nil {
		return PdfInfo{}, rerrors.Wrap(rerrors.KindPdfConversion, err, "reading pdf page dimensions")
	}

	if err := api.ExtractImagesFile(srcPath, tmpDir, nil, c.conf); err != nil {
		return PdfInfo{}, rerrors.Wrap(rerrors.KindPdfConversion, err, "extracting page images")
	}

	perPage, err := groupExtractedImagesByPage(tmpDir, pageCount)
	if err != nil {
		return PdfInfo{}, err
	}

	info := PdfInfo{Pages: make([]PdfPageInfo, 0, pageCount)}
	for i := 0; i < pageCount; i++ {
		imgPath, ok := perPage[i+1]
		if !ok {
			return PdfInfo{}, rerrors.New(rerrors.KindPdfConversion, "page %d has no single embedded raster image to redact", i+1)
		}
		f, err := os.Open(imgPath)
		if err != nil {
			return PdfInfo{}, rerrors.Wrap(rerrors.KindPdfConversion, err, "opening extracted page image")
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return PdfInfo{}, rerrors.Wrap(rerrors.KindPdfConversion, err, "decoding extracted page image")
		}

		widthPts, heightPts := TargetRenderWidth, TargetRenderWidth
		if i < len(dims) {
			widthPts, heightPts = int(dims[i].Width), int(dims[i].Height)
		}
		if widthPts > heightPts {
			img = rotate90(img)
			widthPts, heightPts = heightPts, widthPts
		}

		info.Pages = append(info.Pages, PdfPageInfo{
			WidthPoints:  float64(widthPts),
			HeightPoints: float64(heightPts),
			Image:        img,
		})
	}
	return info, nil
}

// ImagesToPdf assembles a new PDF with one page per image via pdfcpu's
// image import with its default import configuration, which decides the
// page size; WidthPoints and HeightPoints are not applied.
func (c *PdfImageConverter) ImagesToPdf(info PdfInfo) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "dlpcopy-pdf-out-*")
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindPdfConversion, err, "creating scratch dir for pdf assembly")
	}
	defer os.RemoveAll(tmpDir)

	imageFiles := make([]string, 0, len(info.Pages))
	for i, page := range info.Pages {
		imgPath := filepath.Join(tmpDir, fmt.Sprintf("page-%03d.png", i))
		f, err := os.Create(imgPath)
		if err != nil {
			return nil, rerrors.Wrap(rerrors.KindPdfConversion, err, "creating scratch page image")
		}
		if err := EncodePNG(f, page.Image); err != nil {
			f.Close()
			return nil, rerrors.Wrap(rerrors.KindPdfConversion, err, "encoding scratch page image")
		}
		f.Close()
		imageFiles = append(imageFiles, imgPath)
	}

	outPath := filepath.Join(tmpDir, "out.pdf")
	imp := api.DefaultImportConfig()
	if err := api.ImportImagesFile(imageFiles, outPath, imp, c.conf); err != nil {
		return nil, rerrors.Wrap(rerrors.KindPdfConversion, err, "assembling redacted pdf from pages")
	}
	return os.ReadFile(outPath)
}

func groupExtractedImagesByPage(dir string, pageCount int) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindPdfConversion, err, "listing extracted images")
	}
	byPage := map[int][]string{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".pdf" {
			continue
		}
		page, ok := pageNumberFromExtractedName(e.Name())
		if !ok {
			continue
		}
		byPage[page] = append(byPage[page], filepath.Join(dir, e.Name()))
	}
	result := map[int]string{}
	for page, files := range byPage {
		if len(files) != 1 {
			continue
		}
		result[page] = files[0]
	}
	return result, nil
}

// pageNumberFromExtractedName parses pdfcpu's "<base>_<page>_Im<n>.<ext>"
// extraction naming convention.
func pageNumberFromExtractedName(name string) (int, bool) {
	base := name[:len(name)-len(filepath.Ext(name))]
	parts := splitLast(base, "_")
	if len(parts) < 2 {
		return 0, false
	}
	var page int
	if _, err := fmt.Sscanf(parts[len(parts)-2], "%d", &page); err != nil {
		return 0, false
	}
	return page, true
}

func splitLast(s, sep string) []string {
	var out []string
	cur := s
	for {
		idx := lastIndex(cur, sep)
		if idx < 0 {
			out = append([]string{cur}, out...)
			return out
		}
		out = append([]string{cur[idx+len(sep):]}, out...)
		cur = cur[:idx]
	}
}

func lastIndex(s, sep string) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if s[i:i+len(sep)] == sep {
			return i
		}
	}
	return -1
}
