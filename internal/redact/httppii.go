package redact

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// httpPiiRequest/Entity are the bespoke uniform JSON contract §4.6
// specifies for "on-premise HTTP services" generically, distinct from
// the Presidio-specific shape MsPresidio speaks.
type httpPiiRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type httpPiiEntity struct {
	EntityType string `json:"entity_type"`
	Start      *int   `json:"start,omitempty"`
	End        *int   `json:"end,omitempty"`
}

// HttpPii is the generic on-premise HTTP PII service backend (§4.6
// "HTTP PII service"): POST {text, language}, get back entity spans,
// mask them the same way the cloud entity-span backends do.
type HttpPii struct {
	httpClient *http.Client
	endpoint   string
	language   string
	denyList   map[string]bool
}

// NewHttpPii builds an HttpPii backend against endpoint. denyList may
// be nil to use deniedEntityTypesDefault.
func NewHttpPii(httpClient *http.Client, endpoint, language string, denyList map[string]bool) *HttpPii {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if denyList == nil {
		denyList = deniedEntityTypesDefault
	}
	return &HttpPii{httpClient: httpClient, endpoint: endpoint, language: language, denyList: denyList}
}

func (h *HttpPii) RedacterType() Type { return TypeHttpPii }

func (h *HttpPii) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	if strings.HasPrefix(ref.MediaType, "text/") {
		return model.Supported, nil
	}
	return model.Unsupported, nil
}

func (h *HttpPii) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	if item.Content.Kind != model.KindText {
		return item, rerrors.New(rerrors.KindRedactionFailed, "http pii: unsupported content kind")
	}

	body, err := json.Marshal(httpPiiRequest{Text: item.Content.Text, Language: h.language})
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "encoding http pii request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "building http pii request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "calling http pii service")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return item, rerrors.New(rerrors.KindRedactionFailed, "http pii service returned status %d", resp.StatusCode)
	}

	var entities []httpPiiEntity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "decoding http pii response")
	}

	var spans []EntitySpan
	for _, e := range entities {
		if h.denyList[e.EntityType] {
			continue
		}
		spans = append(spans, EntitySpan{EntityType: e.EntityType, Begin: e.Start, End: e.End})
	}

	out := item
	out.Content.Text = MaskSpans(item.Content.Text, spans)
	return out, nil
}
