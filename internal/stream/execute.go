package stream

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"strings"
	"time"

	"github.com/redacter/dlpcopy/internal/convert"
	"github.com/redacter/dlpcopy/internal/imageredact"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/redact"
	"github.com/redacter/dlpcopy/internal/rerrors"
	"github.com/redacter/dlpcopy/internal/throttle"
)

// ocrAssistApproximation is the safety margin applied when painting
// OCR-located words directly onto an original image (§4.6 "approx
// 0.10"), smaller than the 0.25 coord-mode LLM margin since OCR boxes
// are already tight word bounds.
const ocrAssistApproximation = 0.10

// Deps bundles the converters the execution step needs; either may be
// nil if Plan never asked for that capability. BuildPlan sees only the
// caller's pdfAvailable/ocrAvailable flags, so those flags must match
// which converters are set here.
type Deps struct {
	PdfConverter convert.PdfToImage
	Ocr          convert.Ocr
	Throttler    *throttle.Throttler
}

// Materialize turns a downloaded byte stream into a RedacterDataItem
// according to ref's declared media type (§4.7 "Materialize"). opts
// supplies CSV and sampling configuration. treatTableAsText mirrors the
// plan's TreatTableAsText flag (§4.7 "Text and (Table ∧ treat_as_text):
// read fully, decode UTF-8..."): a CSV file whose plan decided to run
// redaction as text is never parsed into rows, it is handed over whole.
func Materialize(ref model.FileSystemRef, data []byte, opts model.RedacterBaseOptions, treatTableAsText bool) (model.RedacterDataItem, error) {
	switch {
	case ref.MediaType == "":
		return model.RedacterDataItem{}, rerrors.New(rerrors.KindMediaTypeMissing, "no media type for %s", ref.RelativePath)

	case strings.HasPrefix(ref.MediaType, "text/") && ref.MediaType != "text/csv":
		return materializeText(ref, data, opts), nil

	case (ref.MediaType == "text/csv" || ref.MediaType == "application/csv") && treatTableAsText:
		return materializeText(ref, data, opts), nil

	case ref.MediaType == "text/csv" || ref.MediaType == "application/csv":
		return materializeTable(ref, data, opts)

	case strings.HasPrefix(ref.MediaType, "image/"):
		return model.RedacterDataItem{FileRef: ref, Content: model.RedacterDataItemContent{
			Kind: model.KindImage, ImageMimeType: ref.MediaType, ImageBytes: data,
		}}, nil

	case ref.MediaType == "application/pdf":
		return model.RedacterDataItem{FileRef: ref, Content: model.RedacterDataItemContent{Kind: model.KindPdf, PdfBytes: data}}, nil

	default:
		return model.RedacterDataItem{}, rerrors.New(rerrors.KindMediaTypeUnsupported, "unsupported media type %q for %s", ref.MediaType, ref.RelativePath)
	}
}

func materializeText(ref model.FileSystemRef, data []byte, opts model.RedacterBaseOptions) model.RedacterDataItem {
	text := string(data)
	if opts.SamplingSize != nil {
		text = redact.TruncateToCodePoints(text, *opts.SamplingSize)
	}
	return model.RedacterDataItem{FileRef: ref, Content: model.RedacterDataItemContent{Kind: model.KindText, Text: text}}
}

func materializeTable(ref model.FileSystemRef, data []byte, opts model.RedacterBaseOptions) (model.RedacterDataItem, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ','
	if opts.CsvDelimiter != 0 {
		r.Comma = rune(opts.CsvDelimiter)
	}
	records, err := r.ReadAll()
	if err != nil {
		return model.RedacterDataItem{}, rerrors.Wrap(rerrors.KindMediaTypeUnsupported, err, "parsing csv for %s", ref.RelativePath)
	}

	var headers []string
	rows := records
	if !opts.CsvHeadersDisable && len(records) > 0 {
		headers = records[0]
		rows = records[1:]
	}
	return model.RedacterDataItem{FileRef: ref, Content: model.RedacterDataItemContent{
		Kind: model.KindTable, TableHeaders: headers, TableRows: rows,
	}}, nil
}

// Execute runs §4.7 "Apply redactors in configured order" then
// "Serialize", returning the commit-policy result (§4.7 "Commit
// policy"). plan.Supported's order is the caller's configured redactor
// order; deps' converters must be non-nil whenever plan demands them
// (BuildPlan only sets those flags when the corresponding converter was
// reported available).
func Execute(ctx context.Context, plan Plan, item model.RedacterDataItem, opts model.RedacterBaseOptions, deps Deps) (model.RedactStreamResult, error) {
	redactions := 0

	// Any backend error here — transport failure or an unexpected content
	// mismatch — propagates as a per-file recoverable error (§4.6
	// "Transport errors propagate to the file result as RedactionFailed
	// (file skipped, copy continues)"); the copy coordinator decides
	// skip-vs-abort from the error's Kind.
	for _, r := range plan.Supported {
		var err error
		item, err = applyOne(ctx, r, plan, item, deps)
		if err != nil {
			return model.RedactStreamResult{}, err
		}
		redactions++
	}

	stream, err := serialize(item, opts)
	if err != nil {
		return model.RedactStreamResult{}, err
	}
	return model.RedactStreamResult{NumberOfRedactions: redactions, Stream: stream}, nil
}

func applyOne(ctx context.Context, r redact.Redacter, plan Plan, item model.RedacterDataItem, deps Deps) (model.RedacterDataItem, error) {
	switch {
	case plan.ApplyPdfToImages && plan.ApplyOcr:
		return applyPdfWithOcr(ctx, r, item, deps)
	case plan.ApplyPdfToImages:
		return applyPdfAsImages(ctx, r, item, deps)
	case plan.ApplyOcr:
		return applyOcrAssistedImage(ctx, r, item, deps)
	default:
		return invoke(ctx, r, item, deps.Throttler)
	}
}

func applyPdfAsImages(ctx context.Context, r redact.Redacter, item model.RedacterDataItem, deps Deps) (model.RedacterDataItem, error) {
	info, err := deps.PdfConverter.ConvertToImages(item.Content.PdfBytes)
	if err != nil {
		return item, err
	}
	for i, page := range info.Pages {
		var buf bytes.Buffer
		if err := encodePageAsPng(&buf, page); err != nil {
			return item, err
		}
		imgItem := model.RedacterDataItem{FileRef: item.FileRef, Content: model.RedacterDataItemContent{
			Kind: model.KindImage, ImageMimeType: "image/png", ImageBytes: buf.Bytes(),
		}}
		redacted, err := invoke(ctx, r, imgItem, deps.Throttler)
		if err != nil {
			return item, err
		}
		decodedImg, _, err := decodePng(redacted.Content.ImageBytes)
		if err != nil {
			return item, rerrors.Wrap(rerrors.KindPdfConversion, err, "decoding redacted page image")
		}
		info.Pages[i].Image = decodedImg
	}
	pdfBytes, err := deps.PdfConverter.ImagesToPdf(info)
	if err != nil {
		return item, err
	}
	out := item
	out.Content.PdfBytes = pdfBytes
	return out, nil
}

func applyPdfWithOcr(ctx context.Context, r redact.Redacter, item model.RedacterDataItem, deps Deps) (model.RedacterDataItem, error) {
	info, err := deps.PdfConverter.ConvertToImages(item.Content.PdfBytes)
	if err != nil {
		return item, err
	}
	for i, page := range info.Pages {
		redactedImg, err := ocrAssistRedactImage(ctx, r, page.Image, deps)
		if err != nil {
			return item, err
		}
		info.Pages[i].Image = redactedImg
	}
	pdfBytes, err := deps.PdfConverter.ImagesToPdf(info)
	if err != nil {
		return item, err
	}
	out := item
	out.Content.PdfBytes = pdfBytes
	return out, nil
}

func applyOcrAssistedImage(ctx context.Context, r redact.Redacter, item model.RedacterDataItem, deps Deps) (model.RedacterDataItem, error) {
	img, _, err := decodePng(item.Content.ImageBytes)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindOcr, err, "decoding image for ocr")
	}
	redacted, err := ocrAssistRedactImage(ctx, r, img, deps)
	if err != nil {
		return item, err
	}
	var buf bytes.Buffer
	if err := encodePng(&buf, redacted); err != nil {
		return item, rerrors.Wrap(rerrors.KindOcr, err, "encoding ocr-redacted image")
	}
	out := item
	out.Content.ImageBytes = buf.Bytes()
	return out, nil
}

// ocrAssistRedactImage implements §4.6's OCR-assisted image path: OCR
// the image, space-join its words into a text payload, redact that
// text, diff the result against the original words, and paint every
// word that disappeared or changed.
func ocrAssistRedactImage(ctx context.Context, r redact.Redacter, img image.Image, deps Deps) (image.Image, error) {
	coords, err := deps.Ocr.ImageToText(img)
	if err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return img, nil
	}

	words := make([]string, len(coords))
	for i, c := range coords {
		words[i] = c.Text
	}
	joined := strings.Join(words, " ")

	textItem := model.RedacterDataItem{Content: model.RedacterDataItemContent{Kind: model.KindText, Text: joined}}
	redactedItem, err := invoke(ctx, r, textItem, deps.Throttler)
	if err != nil {
		return nil, err
	}

	remaining := wordMultiset(strings.Fields(redactedItem.Content.Text))
	var toPaint []imageredact.Coords
	for _, c := range coords {
		if remaining[c.Text] > 0 {
			remaining[c.Text]--
			continue
		}
		toPaint = append(toPaint, c)
	}
	if len(toPaint) == 0 {
		return img, nil
	}
	return imageredact.PaintOnImage(img, toPaint, ocrAssistApproximation), nil
}

func wordMultiset(words []string) map[string]int {
	m := make(map[string]int, len(words))
	for _, w := range words {
		m[w]++
	}
	return m
}

func invoke(ctx context.Context, r redact.Redacter, item model.RedacterDataItem, t *throttle.Throttler) (model.RedacterDataItem, error) {
	if t != nil {
		t.Await()
		t.Update(time.Now())
	}
	return r.Redact(ctx, item)
}

func serialize(item model.RedacterDataItem, opts model.RedacterBaseOptions) ([]byte, error) {
	switch item.Content.Kind {
	case model.KindText:
		return []byte(item.Content.Text), nil
	case model.KindImage:
		return item.Content.ImageBytes, nil
	case model.KindPdf:
		return item.Content.PdfBytes, nil
	case model.KindTable:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Comma = ','
		if opts.CsvDelimiter != 0 {
			w.Comma = rune(opts.CsvDelimiter)
		}
		if len(item.Content.TableHeaders) > 0 {
			if err := w.Write(item.Content.TableHeaders); err != nil {
				return nil, rerrors.Wrap(rerrors.KindIo, err, "writing csv headers")
			}
		}
		for _, row := range item.Content.TableRows {
			if err := w.Write(row); err != nil {
				return nil, rerrors.Wrap(rerrors.KindIo, err, "writing csv row")
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, rerrors.Wrap(rerrors.KindIo, err, "flushing csv writer")
		}
		return buf.Bytes(), nil
	default:
		return nil, rerrors.New(rerrors.KindSystem, "unknown content kind during serialize")
	}
}

func encodePageAsPng(buf *bytes.Buffer, page convert.PdfPageInfo) error {
	return convert.EncodePNG(buf, page.Image)
}

func decodePng(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}

func encodePng(buf *bytes.Buffer, img image.Image) error {
	return convert.EncodePNG(buf, img)
}
