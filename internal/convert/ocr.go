// OCR is implemented by shelling out to the `tesseract` binary in its TSV
// output mode, exactly the subprocess idiom the teacher uses for
// pdftoppm/tesseract in rip.go's pdfToTiff/tesseract helpers — no Go OCR
// binding exists anywhere in the retrieved pack, so the teacher's own
// external-tool-via-os/exec pattern is the best-grounded choice here.
package convert

import (
	"bufio"
	"bytes"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// Ocr is the conversion contract the stream redacter depends on.
type Ocr interface {
	ImageToText(img image.Image) ([]model.TextImageCoords, error)
}

// TesseractOcr invokes the tesseract CLI in TSV mode, which already
// reports one row per recognized word with its bounding box — tesseract
// does the ASCII-space word segmentation and character-rect unioning
// described in §4.5 internally, so this layer just parses its output.
type TesseractOcr struct {
	binary string
}

// NewTesseractOcr builds an Ocr backed by the `tesseract` binary found on
// PATH (or at an explicit path, for tests).
func NewTesseractOcr(binaryPath string) *TesseractOcr {
	if binaryPath == "" {
		binaryPath = "tesseract"
	}
	return &TesseractOcr{binary: binaryPath}
}

func (t *TesseractOcr) ImageToText(img image.Image) ([]model.TextImageCoords, error) {
	tmpDir, err := os.MkdirTemp("", "dlpcopy-ocr-*")
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindOcr, err, "creating ocr scratch dir")
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, "page.png")
	f, err := os.Create(imgPath)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindOcr, err, "creating scratch image")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, rerrors.Wrap(rerrors.KindOcr, err, "encoding scratch image")
	}
	f.Close()

	outBase := filepath.Join(tmpDir, "page")
	cmd := exec.Command(t.binary, imgPath, outBase, "tsv")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, rerrors.Wrap(rerrors.KindOcr, err, "tesseract failed: %s", stderr.String())
	}

	tsv, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindOcr, err, "reading tesseract tsv output")
	}
	return parseTesseractTSV(tsv)
}

// parseTesseractTSV keeps only word-level rows (level == 5) with
// non-blank text, the way tesseract's `-c tessedit_create_tsv=1` output
// is conventionally consumed.
func parseTesseractTSV(data []byte) ([]model.TextImageCoords, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header []string
	var coords []model.TextImageCoords
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if first {
			header = fields
			first = false
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(fields) {
				row[h] = fields[i]
			}
		}
		if row["level"] != "5" {
			continue
		}
		text := strings.TrimSpace(row["text"])
		if text == "" {
			continue
		}
		left, _ := strconv.ParseFloat(row["left"], 64)
		top, _ := strconv.ParseFloat(row["top"], 64)
		width, _ := strconv.ParseFloat(row["width"], 64)
		height, _ := strconv.ParseFloat(row["height"], 64)
		coords = append(coords, model.TextImageCoords{
			X1:   left,
			Y1:   top,
			X2:   left + width,
			Y2:   top + height,
			Text: text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, rerrors.Wrap(rerrors.KindOcr, err, "scanning tesseract tsv output")
	}
	return coords, nil
}
