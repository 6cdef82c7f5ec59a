package redact

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// deniedEntityTypesDefault filters the false-positive-prone entity
// types Comprehend tends to over-report, the same denylist posture
// §4.6 calls out for the generic HTTP PII service ("drivers-license by
// default").
var deniedEntityTypesDefault = map[string]bool{
	"DRIVER_ID": true,
}

// AwsComprehend is the entity-span backend (§4.6 "Entity-span
// services (text-only)"): PII spans returned as byte offsets get
// masked with runs of 'X' of the same length via MaskSpans.
type AwsComprehend struct {
	client       *comprehend.Client
	languageCode types.LanguageCode
	denyList     map[string]bool
}

// NewAwsComprehend builds an AwsComprehend backend. denyList may be nil
// to use deniedEntityTypesDefault.
func NewAwsComprehend(client *comprehend.Client, languageCode types.LanguageCode, denyList map[string]bool) *AwsComprehend {
	if denyList == nil {
		denyList = deniedEntityTypesDefault
	}
	return &AwsComprehend{client: client, languageCode: languageCode, denyList: denyList}
}

func (a *AwsComprehend) RedacterType() Type { return TypeAwsComprehend }

func (a *AwsComprehend) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	if strings.HasPrefix(ref.MediaType, "text/") {
		return model.Supported, nil
	}
	return model.Unsupported, nil
}

func (a *AwsComprehend) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	if item.Content.Kind != model.KindText {
		return item, rerrors.New(rerrors.KindRedactionFailed, "aws comprehend: unsupported content kind")
	}

	resp, err := a.client.DetectPiiEntities(ctx, &comprehend.DetectPiiEntitiesInput{
		Text:         aws.String(item.Content.Text),
		LanguageCode: a.languageCode,
	})
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "comprehend detect pii entities")
	}

	var spans []EntitySpan
	for _, e := range resp.Entities {
		entityType := string(e.Type)
		if a.denyList[entityType] {
			continue
		}
		begin := intPtr(e.BeginOffset)
		end := intPtr(e.EndOffset)
		spans = append(spans, EntitySpan{EntityType: entityType, Begin: begin, End: end})
	}

	out := item
	out.Content.Text = MaskSpans(item.Content.Text, spans)
	return out, nil
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
