package redact

import (
	"context"
	"fmt"
	"strings"

	dlp "cloud.google.com/go/dlp/apiv2"
	dlppb "cloud.google.com/go/dlp/apiv2/dlppb"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// GcpDlp is the structured-DLP backend (§4.6 "Structured-DLP (text and
// image/table)"): text/table are masked with `[REDACTED]`-style
// replacement, images are redacted server-side and the returned image
// bytes keep their original MIME type.
type GcpDlp struct {
	client    *dlp.Client
	projectID string
}

// NewGcpDlp builds a GcpDlp backend against an already-authenticated
// client (application-default credentials), parallel to how the
// teacher never embeds credentials inline.
func NewGcpDlp(client *dlp.Client, projectID string) *GcpDlp {
	return &GcpDlp{client: client, projectID: projectID}
}

func (g *GcpDlp) RedacterType() Type { return TypeGcpDlp }

func (g *GcpDlp) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	switch {
	case strings.HasPrefix(ref.MediaType, "text/") && !isTableMime(ref.MediaType):
		return model.Supported, nil
	case strings.HasPrefix(ref.MediaType, "image/"):
		return model.Supported, nil
	case isTableMime(ref.MediaType):
		// Reported as plain Supported, not routed through the generic
		// CSV-as-text reprobe in stream/plan.go, so the table reaches
		// Redact still structured (gcp_dlp.rs is_mime_table/Table
		// conversion) instead of being flattened to one text blob.
		return model.Supported, nil
	default:
		return model.Unsupported, nil
	}
}

func isTableMime(mediaType string) bool {
	return mediaType == "text/csv" || mediaType == "application/csv"
}

func (g *GcpDlp) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	switch item.Content.Kind {
	case model.KindText:
		return g.redactText(ctx, item)
	case model.KindImage:
		return g.redactImage(ctx, item)
	case model.KindTable:
		return g.redactTable(ctx, item)
	default:
		return item, rerrors.New(rerrors.KindRedactionFailed, "gcp dlp: unsupported content kind")
	}
}

func (g *GcpDlp) redactText(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	req := &dlppb.DeidentifyContentRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", g.projectID),
		Item: &dlppb.ContentItem{
			DataItem: &dlppb.ContentItem_Value{Value: item.Content.Text},
		},
		DeidentifyConfig: &dlppb.DeidentifyConfig{
			Transformation: &dlppb.DeidentifyConfig_InfoTypeTransformations{
				InfoTypeTransformations: &dlppb.InfoTypeTransformations{
					Transformations: []*dlppb.InfoTypeTransformations_InfoTypeTransformation{
						{
							PrimitiveTransformation: &dlppb.PrimitiveTransformation{
								Transformation: &dlppb.PrimitiveTransformation_ReplaceWithInfoTypeConfig{
									ReplaceWithInfoTypeConfig: &dlppb.ReplaceWithInfoTypeConfig{},
								},
							},
						},
					},
				},
			},
		},
	}
	resp, err := g.client.DeidentifyContent(ctx, req)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "gcp dlp deidentify")
	}
	out := item
	out.Content.Text = resp.GetItem().GetValue()
	return out, nil
}

func (g *GcpDlp) redactImage(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	req := &dlppb.RedactImageRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", g.projectID),
		ByteItem: &dlppb.ByteContentItem{
			Type: imageTypeFromMime(item.Content.ImageMimeType),
			Data: item.Content.ImageBytes,
		},
	}
	resp, err := g.client.RedactImage(ctx, req)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "gcp dlp redact image")
	}
	out := item
	out.Content.ImageBytes = resp.GetRedactedImage()
	return out, nil
}

// redactTable sends item's table natively as a DLP Table content item
// (gcp_dlp.rs:196-211, 243-282 TryInto/TryFrom ContentItem::Table)
// instead of flattening headers+rows into one text blob, so column
// boundaries survive the round trip.
func (g *GcpDlp) redactTable(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	req := &dlppb.DeidentifyContentRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", g.projectID),
		Item: &dlppb.ContentItem{
			DataItem: &dlppb.ContentItem_Table{Table: tableToDlp(item.Content)},
		},
		DeidentifyConfig: &dlppb.DeidentifyConfig{
			Transformation: &dlppb.DeidentifyConfig_InfoTypeTransformations{
				InfoTypeTransformations: &dlppb.InfoTypeTransformations{
					Transformations: []*dlppb.InfoTypeTransformations_InfoTypeTransformation{
						{
							PrimitiveTransformation: &dlppb.PrimitiveTransformation{
								Transformation: &dlppb.PrimitiveTransformation_ReplaceWithInfoTypeConfig{
									ReplaceWithInfoTypeConfig: &dlppb.ReplaceWithInfoTypeConfig{},
								},
							},
						},
					},
				},
			},
		},
	}
	resp, err := g.client.DeidentifyContent(ctx, req)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "gcp dlp deidentify table")
	}
	out := item
	out.Content.TableHeaders, out.Content.TableRows = dlpToTable(resp.GetItem().GetTable())
	return out, nil
}

// tableToDlp converts a RedacterDataItemContent's headers+rows into a
// DLP Table, every cell carried as a StringValue (the cells already
// arrived as strings out of the CSV reader, §4.7 materialize).
func tableToDlp(content model.RedacterDataItemContent) *dlppb.Table {
	t := &dlppb.Table{Headers: make([]*dlppb.FieldId, len(content.TableHeaders))}
	for i, h := range content.TableHeaders {
		t.Headers[i] = &dlppb.FieldId{Name: h}
	}
	t.Rows = make([]*dlppb.Table_Row, len(content.TableRows))
	for i, row := range content.TableRows {
		values := make([]*dlppb.Value, len(row))
		for j, cell := range row {
			values[j] = &dlppb.Value{Type: &dlppb.Value_StringValue{StringValue: cell}}
		}
		t.Rows[i] = &dlppb.Table_Row{Values: values}
	}
	return t
}

// dlpToTable converts a redacted DLP Table back into headers+rows.
func dlpToTable(t *dlppb.Table) ([]string, [][]string) {
	if t == nil {
		return nil, nil
	}
	headers := make([]string, len(t.GetHeaders()))
	for i, h := range t.GetHeaders() {
		headers[i] = h.GetName()
	}
	rows := make([][]string, len(t.GetRows()))
	for i, row := range t.GetRows() {
		cells := make([]string, len(row.GetValues()))
		for j, v := range row.GetValues() {
			cells[j] = v.GetStringValue()
		}
		rows[i] = cells
	}
	return headers, rows
}

func imageTypeFromMime(mimeType string) dlppb.ByteContentItem_BytesType {
	switch mimeType {
	case "image/png":
		return dlppb.ByteContentItem_IMAGE_PNG
	case "image/jpeg":
		return dlppb.ByteContentItem_IMAGE_JPEG
	case "image/bmp":
		return dlppb.ByteContentItem_IMAGE_BMP
	default:
		return dlppb.ByteContentItem_IMAGE
	}
}
