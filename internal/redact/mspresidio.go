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

// presidioAnalyzeRequest/Result mirror Microsoft Presidio's analyzer
// REST contract (POST /analyze). No Go client for Presidio exists
// anywhere in the retrieved pack, so this is a bespoke net/http client
// against Presidio's documented JSON shape, justified in DESIGN.md.
type presidioAnalyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type presidioResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// MsPresidio is an entity-span backend (§4.6 "Entity-span services
// (text-only)") against a self-hosted Presidio analyzer endpoint.
type MsPresidio struct {
	httpClient  *http.Client
	analyzerURL string
	language    string
	denyList    map[string]bool
}

// NewMsPresidio builds an MsPresidio backend against analyzerURL (e.g.
// "http://localhost:3000/analyze"). denyList may be nil to use
// deniedEntityTypesDefault.
func NewMsPresidio(httpClient *http.Client, analyzerURL, language string, denyList map[string]bool) *MsPresidio {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if denyList == nil {
		denyList = deniedEntityTypesDefault
	}
	return &MsPresidio{httpClient: httpClient, analyzerURL: analyzerURL, language: language, denyList: denyList}
}

func (p *MsPresidio) RedacterType() Type { return TypeMsPresidio }

func (p *MsPresidio) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	if strings.HasPrefix(ref.MediaType, "text/") {
		return model.Supported, nil
	}
	return model.Unsupported, nil
}

func (p *MsPresidio) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	if item.Content.Kind != model.KindText {
		return item, rerrors.New(rerrors.KindRedactionFailed, "presidio: unsupported content kind")
	}

	body, err := json.Marshal(presidioAnalyzeRequest{Text: item.Content.Text, Language: p.language})
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "encoding presidio request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.analyzerURL, bytes.NewReader(body))
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "building presidio request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "calling presidio")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return item, rerrors.New(rerrors.KindRedactionFailed, "presidio returned status %d", resp.StatusCode)
	}

	var results []presidioResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "decoding presidio response")
	}

	var spans []EntitySpan
	for _, r := range results {
		if p.denyList[r.EntityType] {
			continue
		}
		begin, end := r.Start, r.End
		spans = append(spans, EntitySpan{EntityType: r.EntityType, Begin: &begin, End: &end})
	}

	out := item
	out.Content.Text = MaskSpans(item.Content.Text, spans)
	return out, nil
}
